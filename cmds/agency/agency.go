// Package agency implements the commands running and probing the agency
// service process.
package agency

import (
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"

	"github.com/vanir-network/vanir-agency/agent/bootstrap"
	"github.com/vanir-network/vanir-agency/agent/exchange"
	"github.com/vanir-network/vanir-agency/agent/indy"
	"github.com/vanir-network/vanir-agency/agent/mem"
	"github.com/vanir-network/vanir-agency/agent/pool"
	"github.com/vanir-network/vanir-agency/agent/service"
	"github.com/vanir-network/vanir-agency/agent/utils"
	"github.com/vanir-network/vanir-agency/cmds"
)

// Cmd starts the agency service: the service actor, its sync worker and the
// periodic re-sync scheduler.
type Cmd struct {
	ServiceName  string
	LedgerURL    string
	GenesisPath  string
	AutoRegister bool
	Timeout      time.Duration
	SyncInterval time.Duration
	MemLedger    bool // in-memory ledger for local development
	VersionInfo  string
}

// DefaultValues is the starting point for flag parsing.
var DefaultValues = Cmd{
	ServiceName:  "vanir-agency",
	Timeout:      30 * time.Second,
	SyncInterval: time.Minute,
}

var cron = gocron.NewScheduler(time.Now().Location())

func (c *Cmd) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service name cannot be empty")
	}
	if c.GenesisPath == "" && c.LedgerURL == "" && !c.MemLedger {
		return errors.New("ledger URL or genesis path must be given")
	}
	if c.SyncInterval <= 0 {
		return errors.New("sync interval must be positive")
	}
	return nil
}

func (c *Cmd) Exec(w io.Writer) (r cmds.Result, err error) {
	return nil, c.Run(w)
}

// PreRun applies the settings which must hold before any command logic.
func (c *Cmd) PreRun() {
	utils.Settings.SetServiceName(c.ServiceName)
	utils.Settings.SetLedgerURL(c.LedgerURL)
	utils.Settings.SetGenesisPath(c.GenesisPath)
	utils.Settings.SetAutoRegister(c.AutoRegister)
	utils.Settings.SetTimeout(c.Timeout)
	utils.Settings.SetSyncInterval(c.SyncInterval)
	utils.Settings.SetVersionInfo(c.VersionInfo)
}

// Run builds the service, registers it to the exchange and blocks until the
// process is signaled to stop.
func (c *Cmd) Run(w io.Writer) (err error) {
	defer err2.Handle(&err, "agency run")

	s := service.New(service.Config{
		Name:         c.ServiceName,
		LedgerURL:    c.LedgerURL,
		GenesisPath:  c.GenesisPath,
		AutoRegister: c.AutoRegister,
		Timeout:      c.Timeout,
	}, c.ledgerClient())

	x := exchange.New()
	try.To(x.Register(c.ServiceName, s))

	s.Start()
	defer s.Stop()
	defer x.Stop()

	c.startSyncScheduler(s)
	cmds.Fprintln(w, "agency started:", c.ServiceName)

	waitForSignal()
	glog.V(1).Infoln("shutting down", c.ServiceName)
	return nil
}

func (c *Cmd) ledgerClient() pool.Client {
	if c.MemLedger {
		glog.Warning("using in-memory ledger, no durable state")
		return mem.New()
	}
	return indy.New()
}

// startSyncScheduler arranges periodic re-sync passes so transient ledger
// failures heal without operator action.
func (c *Cmd) startSyncScheduler(s *service.Service) {
	_, err := cron.Every(c.SyncInterval).Do(s.ScheduleSync)
	if err != nil {
		glog.Warningln("sync scheduler start error:", err)
	}
	cron.StartAsync()
}

func waitForSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
}

// PingCmd probes a running ledger server.
type PingCmd struct {
	LedgerURL string
	Timeout   time.Duration
}

func (c PingCmd) Validate() error {
	if c.LedgerURL == "" {
		return errors.New("ledger URL cannot be empty")
	}
	return nil
}

func (c PingCmd) Exec(w io.Writer) (r cmds.Result, err error) {
	defer err2.Handle(&err, "agency ping")

	text := try.To1(bootstrap.LedgerStatus(c.LedgerURL, c.Timeout))
	cmds.Fprintln(w, text)
	return nil, nil
}
