// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/azmotor"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/filterwheel"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/tc36"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/thp"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/transport"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/witmotion"
)

var monitorNoConnect bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard for every configured device",
	Long: `Connect to every device in the config file and show live readings and
the status event log. Commands typed at the prompt:

  connect <device|all>        disconnect <device|all>
  motor <angle>               fw <command> | fw goto <1-9>
  tc <celsius> | tc on|off    thp

Devices: imu, motor, fw, tc, thp. Press Ctrl+C to exit.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorNoConnect, "no-connect", false, "Start with every device disconnected")
	addServiceFlags(monitorCmd)
	rootCmd.AddCommand(monitorCmd)
}

// bench holds one session per device kind
type bench struct {
	imu   *witmotion.Session
	motor *azmotor.Session
	fw    *filterwheel.Session
	tc    *tc36.Session
	thp   *thp.Session

	tcPoller  *tc36.Poller
	thpPoller *thp.Poller
	svc       *services
}

func newBench(opener transport.Opener, svc *services) *bench {
	b := &bench{
		imu:   witmotion.NewSession(opener, notifier),
		motor: azmotor.NewSession(opener, notifier),
		fw:    filterwheel.NewSession(opener, notifier),
		tc:    tc36.NewSession(opener, notifier),
		thp:   thp.NewSession(opener, notifier),
		svc:   svc,
	}
	b.thp.Reuse = cfg.Devices.THPReusePort

	b.tcPoller = tc36.NewPoller(b.tc, cfg.Devices.TempPollInterval)
	b.tcPoller.OnReading = svc.temperature
	b.thpPoller = thp.NewPoller(b.thp, cfg.Devices.THPPollInterval)
	b.thpPoller.OnReading = svc.ambient
	svc.watchIMU(b.imu)
	return b
}

func (b *bench) session(kind device.Kind) device.Session {
	switch kind {
	case device.KindIMU:
		return b.imu
	case device.KindMotor:
		return b.motor
	case device.KindFilterWheel:
		return b.fw
	case device.KindTemperature:
		return b.tc
	case device.KindAmbient:
		return b.thp
	}
	return nil
}

func (b *bench) connect(ctx context.Context, kind device.Kind) device.Outcome {
	ep := cfg.Devices.Get(kind).Endpoint()
	if ep.Port == "" {
		return device.Failed(nil, "No port configured for %s", kind)
	}
	o := b.session(kind).Connect(ctx, ep)
	b.svc.connected(kind, o.OK)
	return o
}

func (b *bench) disconnect(kind device.Kind) device.Outcome {
	if err := b.session(kind).Disconnect(); err != nil {
		return device.Failed(err, "%s: %v", kind, err)
	}
	b.svc.connected(kind, false)
	return device.Succeeded("%s disconnected", kind)
}

// connectAll connects every configured device concurrently
func (b *bench) connectAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, kind := range allKinds {
		if cfg.Devices.Get(kind).Port == "" {
			continue
		}
		wg.Add(1)
		go func(kind device.Kind) {
			defer wg.Done()
			b.connect(ctx, kind)
		}(kind)
	}
	wg.Wait()
}

func (b *bench) disconnectAll() {
	for _, kind := range allKinds {
		b.session(kind).Disconnect()
		b.svc.connected(kind, false)
	}
}

// command is one parsed prompt line
type command struct {
	verb string
	kind device.Kind
	all  bool
	arg  string
}

var deviceAliases = map[string]device.Kind{
	"imu":         device.KindIMU,
	"motor":       device.KindMotor,
	"fw":          device.KindFilterWheel,
	"filterwheel": device.KindFilterWheel,
	"tc":          device.KindTemperature,
	"temperature": device.KindTemperature,
	"thp":         device.KindAmbient,
	"ambient":     device.KindAmbient,
}

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, fmt.Errorf("empty command")
	}
	verb := strings.ToLower(fields[0])

	switch verb {
	case "connect", "disconnect":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("usage: %s <device|all>", verb)
		}
		if strings.EqualFold(fields[1], "all") {
			return command{verb: verb, all: true}, nil
		}
		kind, ok := deviceAliases[strings.ToLower(fields[1])]
		if !ok {
			return command{}, fmt.Errorf("unknown device %q", fields[1])
		}
		return command{verb: verb, kind: kind}, nil
	}

	kind, ok := deviceAliases[verb]
	if !ok {
		return command{}, fmt.Errorf("unknown command %q", fields[0])
	}
	arg := strings.Join(fields[1:], " ")

	switch kind {
	case device.KindIMU:
		return command{}, fmt.Errorf("the IMU takes no commands")
	case device.KindAmbient:
		if arg != "" {
			return command{}, fmt.Errorf("usage: thp")
		}
		return command{verb: "sample", kind: kind}, nil
	case device.KindFilterWheel:
		if len(fields) == 3 && strings.EqualFold(fields[1], "goto") {
			if _, err := strconv.Atoi(fields[2]); err != nil {
				return command{}, fmt.Errorf("invalid position %q", fields[2])
			}
			return command{verb: "goto", kind: kind, arg: fields[2]}, nil
		}
	case device.KindTemperature:
		switch strings.ToLower(arg) {
		case "on", "off":
			return command{verb: "power", kind: kind, arg: strings.ToLower(arg)}, nil
		}
	}
	if arg == "" {
		return command{}, fmt.Errorf("usage: %s <value>", verb)
	}
	return command{verb: "send", kind: kind, arg: arg}, nil
}

// execute runs a parsed command; outcomes reach the event log through the
// sessions' own reports
func (b *bench) execute(ctx context.Context, c command) device.Outcome {
	switch c.verb {
	case "connect":
		if c.all {
			b.connectAll(ctx)
			return device.Succeeded("connect all finished")
		}
		return b.connect(ctx, c.kind)
	case "disconnect":
		if c.all {
			b.disconnectAll()
			return device.Succeeded("all devices disconnected")
		}
		return b.disconnect(c.kind)
	case "sample":
		r, err := b.thpPoller.Poll(ctx)
		if err != nil {
			return device.Failed(err, "THP sensor read failed.")
		}
		return device.Succeeded("%s T=%.2f °C", r.SensorID, r.Temperature)
	case "goto":
		pos, _ := strconv.Atoi(c.arg)
		return b.fw.Goto(ctx, pos)
	case "power":
		return b.tc.SetPower(ctx, c.arg == "on")
	case "send":
		if cmdr, ok := b.session(c.kind).(device.Commander); ok {
			return cmdr.Send(ctx, c.arg)
		}
	}
	return device.Failed(nil, "cannot run %q", c.verb)
}

// run drives the pollers and publishes IMU snapshots until ctx is done
func (b *bench) run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		b.tcPoller.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		b.thpPoller.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		device.Poll(ctx, time.Second, func(ctx context.Context) {
			if b.imu.IsConnected() {
				b.svc.imu(b.imu.Latest())
			}
		})
	}()
	wg.Wait()
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	opener, err := newOpener()
	if err != nil {
		return err
	}
	svc, err := startServices(ctx)
	if err != nil {
		return err
	}
	b := newBench(opener, svc)

	// The dashboard owns the terminal
	logger.SetOutput(io.Discard)

	events, unsubscribe := notifier.Subscribe(256)
	defer unsubscribe()

	p := tea.NewProgram(newMonitorModel(ctx, b), tea.WithAltScreen(), tea.WithContext(ctx))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				p.Send(eventMsg(ev))
			}
		}
	}()
	go func() {
		defer wg.Done()
		if !monitorNoConnect {
			b.connectAll(ctx)
		}
		b.run(ctx)
	}()

	_, err = p.Run()
	interrupted := ctx.Err() != nil
	cancel()
	wg.Wait()
	b.disconnectAll()
	svc.wait()
	if err != nil && !interrupted {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
