package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rtuinos/config"
	"rtuinos/sched"
	"rtuinos/task"
	"rtuinos/trace"
)

func main() {
	configPath := flag.String("config", "", "Kernel YAML configuration (default: built-in reference config)")
	tickInterval := flag.Duration("tick-interval", 50*time.Millisecond, "Real time between system ticks")
	interactive := flag.Bool("interactive", false, "Read raw stdin and post ISR_USER_00/01 on '0'/'1' keypresses")

	traceEnabled := flag.Bool("trace", false, "Enable kernel event tracing")
	traceFilter := flag.String("trace-filter", "", "Trace category filter (glob, comma-separated, e.g. 'switch,over*')")

	flag.Parse()

	if *traceEnabled {
		var filters []string
		if *traceFilter != "" {
			filters = strings.Split(*traceFilter, ",")
			for i := range filters {
				filters[i] = strings.TrimSpace(filters[i])
			}
		}
		trace.Init(true, filters, os.Stderr)
		log.Printf("Tracing enabled (filters: %v)", filters)
	} else {
		trace.Init(false, nil, nil)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	log.Printf("RTuinOS-style kernel")
	log.Printf("Tasks: %d  Priority classes: %d  Clock width: %d-bit  Round-robin: %v",
		cfg.Tasks, cfg.PrioClasses, cfg.ClockWidth, cfg.RoundRobin)

	k := sched.NewKernel(cfg)
	demoTasks(k, cfg)

	k.Start(func() {
		time.Sleep(time.Millisecond) // idle body: nothing to do but yield CPU to the host OS
	})

	log.Printf("Starting tick source at %s intervals...", *tickInterval)
	ticker := time.NewTicker(*tickInterval)
	defer ticker.Stop()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	var keyHost *KeyHost
	var quit <-chan struct{}
	if *interactive {
		keyHost = NewKeyHost(k, cfg)
		log.Printf("Interactive mode: 'q' or Ctrl-C quits")
		keyHost.Start()
		defer keyHost.Stop()
		quit = keyHost.Quit()
	}

	for {
		select {
		case <-ticker.C:
			k.Tick()
		case <-sigc:
			log.Printf("Shutting down")
			k.Stop()
			return
		case <-quit:
			log.Printf("Shutting down")
			k.Stop()
			return
		}
	}
}

// demoTasks wires up a small reference task set exercising every wait mode
// named in spec.md §4.5: an absolute-cadence heartbeat, an event-driven
// watcher woken by the interactive key host (or PostEvent calls from any
// embedder), and — when the configuration enables it — a round-robin
// worker pool.
func demoTasks(k *sched.Kernel, cfg config.Kernel) {
	heartbeat := func(id int, initial uint16) {
		log.Printf("task %d (heartbeat): initial vec=%#04x", id, initial)
		for {
			vec := k.WaitForEvent(id, task.EvtAbsTimer, false, 20)
			log.Printf("task %d (heartbeat): tick, vec=%#04x, overrun=%d", id, vec, k.TaskOverrunCounter(id, false))
		}
	}
	k.InitializeTask(0, heartbeat, uint8(cfg.PrioClasses-1), 0, nil, task.EvtAbsTimer, false, 20)

	if cfg.Tasks < 2 {
		return
	}
	watcher := func(id int, initial uint16) {
		log.Printf("task %d (watcher): initial vec=%#04x", id, initial)
		for {
			vec := k.WaitForEvent(id, task.EvtISRUser00|task.EvtISRUser01, true, 0)
			log.Printf("task %d (watcher): woke on vec=%#04x", id, vec)
		}
	}
	watcherPrio := uint8(0)
	if cfg.PrioClasses > 2 {
		watcherPrio = uint8(cfg.PrioClasses - 2)
	}
	k.InitializeTask(1, watcher, watcherPrio, 0, nil, task.EvtISRUser00|task.EvtISRUser01, true, 0)

	for i := 2; i < cfg.Tasks; i++ {
		worker := func(taskID int, initial uint16) {
			log.Printf("task %d (worker): starting", taskID)
			for {
				k.Yield(taskID)
			}
		}
		// A zero-timeout DELAY_TIMER wait is the idiom for "join the ready
		// pool on the very next tick" — these workers never wait on an
		// event again, so round-robin rotation is the only thing that ever
		// moves them off the CPU (spec.md §8 scenario 4).
		k.InitializeTask(i, worker, 0, 4, nil, task.EvtDelayTimer, false, 0)
	}
}
