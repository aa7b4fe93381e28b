package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	log "github.com/sirupsen/logrus"

	"github.com/dan13ram/squads-treasury/app"
	"github.com/dan13ram/squads-treasury/common"
	"github.com/dan13ram/squads-treasury/models"
	"github.com/dan13ram/squads-treasury/solana/client"
	"github.com/dan13ram/squads-treasury/treasury"
	"github.com/dan13ram/squads-treasury/treasury/util"
)

// session is everything a command needs, resolved once per invocation.
type session struct {
	store    app.SettingsStore
	settings models.Settings
	wallet   common.Signer
	client   client.SolanaClient
	treasury *treasury.Treasury
}

func newSession() (*session, error) {
	store := app.NewSettingsStore()
	settings, err := store.Get()
	if err != nil {
		return nil, err
	}

	wallet, err := app.NewWallet()
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}

	solanaClient := client.NewClient(settings.RPCURL, time.Duration(app.Config.Solana.RPCTimeoutMillis)*time.Millisecond)

	return &session{
		store:    store,
		settings: settings,
		wallet:   wallet,
		client:   solanaClient,
		treasury: treasury.NewTreasury(solanaClient, wallet, settings, treasury.Config{
			Confirmation: app.Config.Confirmation,
			Execution:    app.Config.Execution,
			Cache:        app.Config.Cache,
			Notifier:     logSubmission,
		}),
	}, nil
}

func (s *session) Close() {
	if s.wallet != nil {
		s.wallet.Destroy()
	}
}

func logSubmission(attempt models.SubmissionAttempt) {
	logger := log.WithField("id", attempt.ID).WithField("action", attempt.Action)
	if attempt.Err != nil {
		logger = logger.WithError(attempt.Err)
	}
	logger.Info("[CLI] Submission ", attempt.State)
}

// withSession runs fn with a fresh session and closes it afterwards.
func withSession(fn func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, s, args)
	}
}

func printAttempt(out io.Writer, attempt *models.SubmissionAttempt) {
	fmt.Fprintf(out, "%s %s\n", attempt.Action, attempt.State)
	for _, signature := range attempt.Signatures {
		fmt.Fprintf(out, "  signature: %s\n", signature)
	}
}

// submit prints the attempt of a mutating command before returning its error.
func submit(cmd *cobra.Command, attempt *models.SubmissionAttempt, err error) error {
	if attempt != nil && attempt.State != models.SubmissionStateIdle {
		printAttempt(cmd.OutOrStdout(), attempt)
	}
	return err
}

func parseIndex(value string) (uint32, error) {
	index, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, common.NewValidationError("index", "%q is not a proposal index", value)
	}
	return uint32(index), nil
}

func newRootCommand() *cobra.Command {
	var (
		configFile string
		envFile    string
	)

	cmd := &cobra.Command{
		Use:           "squads-treasury",
		Short:         "Manage a Squads multisig treasury",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configFile != "" {
				configFile, _ = filepath.Abs(configFile)
			}
			app.InitConfig(configFile, envFile)
			app.InitLogger()
			app.InitDB()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.DB != nil {
				if err := app.DB.Disconnect(); err != nil {
					log.Warn("[CLI] Error disconnecting database: ", err)
				}
			}
		},
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "path to the yaml config file")
	cmd.PersistentFlags().StringVar(&envFile, "env", "", "path to an env file")

	cmd.AddCommand(
		newCreateCommand(),
		newInfoCommand(),
		newBalanceCommand(),
		newTokensCommand(),
		newProposalsCommand(),
		newAddMemberCommand(),
		newRemoveMemberCommand(),
		newChangeThresholdCommand(),
		newSendSolCommand(),
		newSendTokenCommand(),
		newChangeUpgradeAuthorityCommand(),
		newImportCommand(),
		newVoteCommand("approve", "Approve a proposal", (*treasury.Treasury).ApproveProposal),
		newVoteCommand("reject", "Reject a proposal", (*treasury.Treasury).RejectProposal),
		newVoteCommand("cancel", "Cancel an execute-ready proposal", (*treasury.Treasury).CancelProposal),
		newExecuteCommand(),
		newSettingsCommand(),
		newWatchCommand(),
	)
	return cmd
}

func newCreateCommand() *cobra.Command {
	var (
		members   []string
		threshold int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a multisig and select it",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			attempt, multisig, err := s.treasury.CreateMultisig(cmd.Context(), members, threshold)
			if err := submit(cmd, attempt, err); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "multisig: %s\n", multisig)
			return s.store.SetMultisigAddress(multisig.String())
		}),
	}
	cmd.Flags().StringSliceVar(&members, "member", nil, "member address, repeatable")
	cmd.Flags().IntVar(&threshold, "threshold", 1, "approvals required to execute")
	return cmd
}

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the active multisig",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			if s.settings.MultisigAddress.IsZero() {
				return &common.ValidationError{Message: "No multisig selected."}
			}
			queries := s.treasury.Queries()
			multisig, err := queries.Multisig(cmd.Context())
			if err != nil {
				return err
			}
			vault, err := queries.Vault()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "multisig:          %s\n", multisig.Address)
			fmt.Fprintf(out, "vault:             %s\n", vault)
			fmt.Fprintf(out, "threshold:         %d of %d\n", multisig.Threshold, len(multisig.Keys))
			fmt.Fprintf(out, "transaction index: %d\n", multisig.TransactionIndex)
			for _, member := range multisig.Keys {
				fmt.Fprintf(out, "  member: %s\n", member)
			}
			return nil
		}),
	}
}

func newBalanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the vault SOL balance",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			lamports, err := s.treasury.Queries().VaultBalance(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s SOL\n", util.FromBaseUnits(lamports, common.SolDecimals))
			return nil
		}),
	}
}

func newTokensCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "List the vault token balances",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			balances, err := s.treasury.Queries().VaultTokens(cmd.Context())
			if err != nil {
				return err
			}
			for _, balance := range balances {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", balance.Mint, util.FromBaseUnits(balance.Amount, balance.Decimals))
			}
			return nil
		}),
	}
}

func newProposalsCommand() *cobra.Command {
	var (
		start    uint32
		pageSize uint32
	)
	cmd := &cobra.Command{
		Use:   "proposals",
		Short: "List proposals, newest first",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			queries := s.treasury.Queries()
			if start == 0 {
				multisig, err := queries.Multisig(cmd.Context())
				if err != nil {
					return err
				}
				start = multisig.TransactionIndex
			}
			end := uint32(1)
			if pageSize > 0 && start > pageSize {
				end = start - pageSize + 1
			}

			proposals, err := queries.Proposals(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			for _, proposal := range proposals {
				fmt.Fprintf(cmd.OutOrStdout(), "#%d  %-12s  approved %d  rejected %d  instructions %d\n",
					proposal.Index, proposal.Status, len(proposal.Approved), len(proposal.Rejected), proposal.InstructionIndex)
			}
			return nil
		}),
	}
	cmd.Flags().Uint32Var(&start, "start", 0, "highest index to list, defaults to the latest")
	cmd.Flags().Uint32Var(&pageSize, "page-size", treasury.DefaultMonitorPageSize, "number of indexes to list")
	return cmd
}

func newAddMemberCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add-member <address>",
		Short: "Propose adding a member",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			attempt, err := s.treasury.AddMember(cmd.Context(), args[0])
			return submit(cmd, attempt, err)
		}),
	}
}

func newRemoveMemberCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-member <address>",
		Short: "Propose removing a member",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			attempt, err := s.treasury.RemoveMember(cmd.Context(), args[0])
			return submit(cmd, attempt, err)
		}),
	}
}

func newChangeThresholdCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "change-threshold <threshold>",
		Short: "Propose a new approval threshold",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			threshold, err := strconv.Atoi(args[0])
			if err != nil {
				return common.NewValidationError("threshold", "%q is not a number", args[0])
			}
			attempt, err := s.treasury.ChangeThreshold(cmd.Context(), threshold)
			return submit(cmd, attempt, err)
		}),
	}
}

func newSendSolCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "send-sol <recipient> <amount>",
		Short: "Propose a SOL transfer from the vault",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			attempt, err := s.treasury.SendSol(cmd.Context(), args[0], args[1])
			return submit(cmd, attempt, err)
		}),
	}
}

func newSendTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "send-token <mint> <recipient> <amount>",
		Short: "Propose a token transfer from the vault",
		Args:  cobra.ExactArgs(3),
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			attempt, err := s.treasury.SendToken(cmd.Context(), args[0], args[1], args[2])
			return submit(cmd, attempt, err)
		}),
	}
}

func newChangeUpgradeAuthorityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "change-upgrade-authority <program> <new-authority>",
		Short: "Propose moving a program's upgrade authority away from the vault",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			attempt, err := s.treasury.ChangeUpgradeAuthority(cmd.Context(), args[0], args[1])
			return submit(cmd, attempt, err)
		}),
	}
}

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <encoded-message>",
		Short: "Propose the instructions of a base58 or base64 encoded transaction",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			attempt, err := s.treasury.ImportTransaction(cmd.Context(), args[0])
			return submit(cmd, attempt, err)
		}),
	}
}

type voteFunc func(*treasury.Treasury, context.Context, uint32) (*models.SubmissionAttempt, error)

func newVoteCommand(use string, short string, vote voteFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <index>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			attempt, err := vote(s.treasury, cmd.Context(), index)
			return submit(cmd, attempt, err)
		}),
	}
}

func newExecuteCommand() *cobra.Command {
	var options treasury.ExecuteOptions
	cmd := &cobra.Command{
		Use:   "execute <index>",
		Short: "Execute a proposal that reached its threshold",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			attempt, err := s.treasury.ExecuteProposal(cmd.Context(), index, options)
			return submit(cmd, attempt, err)
		}),
	}
	cmd.Flags().Uint64Var(&options.PriorityFeeMicroLamports, "priority-fee", 0, "priority fee in micro-lamports per compute unit, defaults to config")
	cmd.Flags().Uint32Var(&options.ComputeUnitLimit, "compute-units", 0, "compute unit limit, defaults to config")
	return cmd
}

func newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the rpc endpoint, program id and active multisig",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := app.NewSettingsStore().Get()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rpc url:    %s\n", settings.RPCURL)
			fmt.Fprintf(out, "program id: %s\n", settings.ProgramID)
			if settings.MultisigAddress.IsZero() {
				fmt.Fprintln(out, "multisig:   none")
			} else {
				fmt.Fprintf(out, "multisig:   %s\n", settings.MultisigAddress)
			}
			return nil
		},
	}

	setter := func(use string, short string, set func(app.SettingsStore, string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <value>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return set(app.NewSettingsStore(), args[0])
			},
		}
	}

	cmd.AddCommand(
		show,
		setter("set-rpc", "Change the rpc url", app.SettingsStore.SetRPCURL),
		setter("set-program-id", "Change the multisig program id, empty for the default", app.SettingsStore.SetProgramID),
		setter("set-multisig", "Select the active multisig", app.SettingsStore.SetMultisigAddress),
	)
	return cmd
}
