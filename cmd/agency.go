package cmd

import (
	"log"
	"os"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/spf13/cobra"

	"github.com/vanir-network/vanir-agency/agent/utils"
	"github.com/vanir-network/vanir-agency/cmds/agency"
)

// AgencyCmd represents the agency command
var AgencyCmd = &cobra.Command{
	Use:   "agency",
	Short: "Parent command for starting and pinging agency",
	Long: `
Parent command for starting and pinging agency
	`,
	Run: func(cmd *cobra.Command, args []string) {
		SubCmdNeeded(cmd)
	},
}

var agencyStartEnvs = map[string]string{
	"service-name":  "SERVICE_NAME",
	"ledger-url":    "LEDGER_URL",
	"genesis-path":  "GENESIS_PATH",
	"auto-register": "AUTO_REGISTER",
	"timeout":       "TIMEOUT",
	"sync-interval": "SYNC_INTERVAL",
	"mem-ledger":    "MEM_LEDGER",
}

// startAgencyCmd represents the agency start subcommand
var startAgencyCmd = &cobra.Command{
	Use:   "start",
	Short: "Command for starting agency",
	Long: `
Start command for the vanir agency service.

Example
	vanir-agency agency start \
		--ledger-url http://localhost:9000 \
		--genesis-path /tmp/vanir/genesis.txt \
		--auto-register
	`,
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(agencyStartEnvs, "AGENCY")
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer err2.Handle(&err)

		try.To(aCmd.Validate())
		if !rootFlags.dryRun {
			cmd.SilenceUsage = true
			try.To1(aCmd.Exec(os.Stdout))
		}
		return nil
	},
}

var agencyPingEnvs = map[string]string{
	"ledger-url": "PING_LEDGER_URL",
}

// pingAgencyCmd represents the agency ping subcommand
var pingAgencyCmd = &cobra.Command{
	Use:   "ping",
	Short: "Command for pinging the ledger server",
	Long: `
Pings the ledger server behind the agency.
If the ledger works fine, its status page is printed.

Example
	vanir-agency agency ping \
		--ledger-url http://localhost:9000
	`,
	PreRunE: func(cmd *cobra.Command, args []string) (err error) {
		return BindEnvs(agencyPingEnvs, "AGENCY")
	},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer err2.Handle(&err)
		try.To(paCmd.Validate())
		if !rootFlags.dryRun {
			cmd.SilenceUsage = true
			try.To1(paCmd.Exec(os.Stdout))
		}
		return nil
	},
}

var (
	aCmd  = agency.DefaultValues
	paCmd = agency.PingCmd{}
)

func init() {
	defer err2.Catch(func(err error) error {
		log.Println(err)
		return nil
	})

	aCmd.VersionInfo = "vanir-agency v. " + utils.Version

	flags := startAgencyCmd.Flags()
	flags.StringVar(&aCmd.ServiceName, "service-name", aCmd.ServiceName, flagInfo("service name", AgencyCmd.Name(), agencyStartEnvs["service-name"]))
	flags.StringVar(&aCmd.LedgerURL, "ledger-url", "", flagInfo("root URL of the ledger server", AgencyCmd.Name(), agencyStartEnvs["ledger-url"]))
	flags.StringVar(&aCmd.GenesisPath, "genesis-path", "", flagInfo("path of the genesis transaction file", AgencyCmd.Name(), agencyStartEnvs["genesis-path"]))
	flags.BoolVar(&aCmd.AutoRegister, "auto-register", false, flagInfo("register missing agent DIDs automatically", AgencyCmd.Name(), agencyStartEnvs["auto-register"]))
	flags.DurationVar(&aCmd.Timeout, "timeout", aCmd.Timeout, flagInfo("ledger server HTTP timeout", AgencyCmd.Name(), agencyStartEnvs["timeout"]))
	flags.DurationVar(&aCmd.SyncInterval, "sync-interval", aCmd.SyncInterval, flagInfo("interval between scheduled re-sync passes", AgencyCmd.Name(), agencyStartEnvs["sync-interval"]))
	flags.BoolVar(&aCmd.MemLedger, "mem-ledger", false, flagInfo("use the in-memory ledger, development only", AgencyCmd.Name(), agencyStartEnvs["mem-ledger"]))

	p := pingAgencyCmd.Flags()
	p.StringVar(&paCmd.LedgerURL, "ledger-url", "http://localhost:9000", flagInfo("root URL of the ledger server", AgencyCmd.Name(), agencyPingEnvs["ledger-url"]))
	p.DurationVar(&paCmd.Timeout, "ping-timeout", utils.HTTPReqTimeout, "timeout for the ping request")

	rootCmd.AddCommand(AgencyCmd)
	AgencyCmd.AddCommand(startAgencyCmd)
	AgencyCmd.AddCommand(pingAgencyCmd)
}
