/*
Copyright The TRDP-Go Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tcnopen/trdp-go/session"
	"github.com/tcnopen/trdp-go/trdpconfig"
	"github.com/tcnopen/trdp-go/trdpstats"
	"github.com/tcnopen/trdp-go/trdptime"
)

var (
	okString   = color.GreenString("[ OK ]")
	failString = color.RedString("[FAIL]")
)

var (
	runConfigFile     string
	runDebugAddr      string
	runIface          string
	runIP             string
	runLeaderIP       string
	runLogLevel       string
	runMonitoringPort int
	runPidFile        string
)

func init() {
	rootCmd.AddCommand(runCmd)

	dflt := trdpconfig.DefaultConfig()
	runCmd.Flags().StringVar(&runConfigFile, "config", "", "path to a YAML config with dynamic settings")
	runCmd.Flags().StringVar(&runDebugAddr, "pprofaddr", "", "host:port for the pprof debug listener")
	runCmd.Flags().StringVar(&runIface, "iface", dflt.Interface, "interface to bind on")
	runCmd.Flags().StringVar(&runIP, "ip", "", "own IP to bind on, must be assigned to iface")
	runCmd.Flags().StringVar(&runLeaderIP, "leader-ip", "", "virtual redundancy leader IP, if this host is part of a redundancy pair")
	runCmd.Flags().StringVar(&runLogLevel, "loglevel", dflt.LogLevel, "log level: debug, info, warning, error")
	runCmd.Flags().IntVar(&runMonitoringPort, "monitoringport", dflt.MonitoringPort, "port to serve /metrics on")
	runCmd.Flags().StringVar(&runPidFile, "pidfile", dflt.PidFile, "pid file location")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run the trdpd session daemon",
	Run:   runMain,
}

func runMain(cmd *cobra.Command, _ []string) {
	cfg := trdpconfig.DefaultConfig()
	cfg.Interface = runIface
	cfg.LogLevel = runLogLevel
	cfg.MonitoringPort = runMonitoringPort
	cfg.PidFile = runPidFile
	cfg.DebugAddr = runDebugAddr

	switch cfg.LogLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Fatalf("unrecognized log level: %v", cfg.LogLevel)
	}

	if runConfigFile != "" {
		dc, err := trdpconfig.ReadDynamicConfig(runConfigFile)
		if err != nil {
			log.Fatal(err)
		}
		cfg.DynamicConfig = *dc
	}

	if runIP == "" {
		log.Fatal("--ip is required")
	}
	cfg.IP = net.ParseIP(runIP)
	if cfg.IP == nil {
		log.Fatalf("invalid --ip %q", runIP)
	}
	if runLeaderIP != "" {
		cfg.LeaderIP = net.ParseIP(runLeaderIP)
		if cfg.LeaderIP == nil {
			log.Fatalf("invalid --leader-ip %q", runLeaderIP)
		}
	}

	found, err := cfg.IfaceHasIP()
	if err != nil {
		log.Fatal(err)
	}
	if !found {
		fmt.Printf("%s %s is not assigned to %s\n", failString, cfg.IP, cfg.Interface)
		os.Exit(1)
	}
	fmt.Printf("%s %s is assigned to %s\n", okString, cfg.IP, cfg.Interface)

	if cfg.DebugAddr != "" {
		log.Warningf("starting pprof listener on %s", cfg.DebugAddr)
		go func() {
			log.Error(http.ListenAndServe(cfg.DebugAddr, nil))
		}()
	}

	if err := cfg.CreatePidFile(); err != nil {
		log.Fatalf("writing pid file: %v", err)
	}
	defer func() {
		if err := cfg.DeletePidFile(); err != nil {
			log.Warningf("removing pid file: %v", err)
		}
	}()

	ownIP, ok := netip.AddrFromSlice(cfg.IP.To16())
	if !ok {
		log.Fatalf("could not convert %v to netip.Addr", cfg.IP)
	}
	ownIP = ownIP.Unmap()

	sessCfg := session.Config{
		OwnIP: ownIP,
		PD:    cfg.PD,
		MD:    cfg.MD,
	}
	if cfg.LeaderIP != nil {
		leaderIP, ok := netip.AddrFromSlice(cfg.LeaderIP.To16())
		if ok {
			sessCfg.LeaderIP = leaderIP.Unmap()
		}
	}

	sess := session.Open(sessCfg)
	defer sess.Close()

	exporter := trdpstats.NewPrometheusExporter(sess.Stats(), time.Second)
	var eg errgroup.Group
	eg.Go(func() error {
		if err := exporter.Start(cfg.MonitoringPort); err != nil {
			return fmt.Errorf("monitoring server stopped: %w", err)
		}
		return nil
	})
	go func() {
		if err := eg.Wait(); err != nil {
			log.Error(err)
		}
	}()

	if err := sdNotify(); err != nil {
		log.Warningf("sd_notify: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Infof("trdpd running on %s (%s)", cfg.IP, cfg.Interface)
	driveSession(sess, exporter, sigCh)
}

// driveSession alternates GetInterval, WaitForEvent and Process until
// sigCh fires, the only blocking call this daemon makes besides reading
// a ready socket.
func driveSession(sess *session.Session, exporter *trdpstats.PrometheusExporter, sigCh <-chan os.Signal) {
	defer exporter.Stop()

	buf := make([]byte, 65536)
	for {
		select {
		case sig := <-sigCh:
			log.Infof("received %v, shutting down", sig)
			return
		default:
		}

		budget := sess.GetInterval(trdptime.Now())
		ready, err := sess.WaitForEvent(budget)
		if err != nil {
			log.Errorf("WaitForEvent: %v", err)
			continue
		}

		for _, ep := range ready {
			n, from, err := ep.ReadFrom(buf)
			if err != nil {
				log.Warningf("ReadFrom: %v", err)
				continue
			}
			local := ep.LocalAddrPort()
			if _, _, err := sess.DispatchFrame(buf[:n], from.Addr(), local.Addr(), from.Port()); err != nil {
				log.Debugf("DispatchFrame: %v", err)
			}
		}

		sess.Process(trdptime.Now())
	}
}

// sdNotify tells systemd this unit is ready, warning rather than
// failing when NOTIFY_SOCKET is unset (i.e. not running under systemd).
func sdNotify() error {
	supported, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if !supported && err != nil {
		return err
	} else if !supported {
		log.Warning("sd_notify not supported")
	} else {
		log.Info("successfully sent sd_notify event")
	}
	return nil
}
