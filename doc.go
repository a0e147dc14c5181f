// Package botlang runs conversational bot scripts.
//
// Scripts are written in a small indentation-based language: bots hold
// input and event handlers, agents hold handlers of their own, and
// handlers say things, call host tools and hand work off with
// `delegate to`. This package wires the interpreter in package dsl to:
//
//   - Built-in and YAML-declared tools from package tools
//   - Bot memory backed by SQLite (memory.get, memory.set, ...)
//   - Cron schedules that emit events (schedule.create, ...)
//   - An in-process EventBus of run lifecycle events
//
// # Quick Start
//
//	rt, err := botlang.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	res, err := rt.Run(ctx, `
//	bot Greeter
//	  on input when input contains "hello"
//	    say f"Hi! You said: {input}"
//	end
//	`, "hello there", nil)
//	if err != nil {
//	    log.Fatal(err) // lexical or syntax error
//	}
//	fmt.Println(res.Output) // [Hi! You said: hello there]
//
// Tool failures never abort a run; they are collected in res.Errors.
//
// # Configuration
//
// FromConfig builds a Runtime from a config.Config loaded from YAML or
// TOML. It opens the memory database, registers configured tools and
// keeps the configured schedules for Serve:
//
//	cfg, err := config.Load("botlang.yaml")
//	rt, err := botlang.FromConfig(cfg, botlang.WithFollowDelegations(3))
//
// # Events and schedules
//
// Emit delivers a named event to every `on event` handler of the loaded
// bots. Serve fires configured and script-created schedules until its
// context is cancelled:
//
//	if _, err := rt.LoadFile("shop.bot"); err != nil {
//	    log.Fatal(err)
//	}
//	go rt.Serve(ctx)
//	res := rt.Emit(ctx, "order.shipped", map[string]any{"id": 42}, nil)
//
// Subscribe to the EventBus to observe runs:
//
//	events := rt.Events().Subscribe()
//	defer rt.Events().Unsubscribe(events)
//	for e := range events {
//	    if e.Type == botlang.EventToolFailed {
//	        log.Printf("%s failed: %s", e.Tool, e.Error)
//	    }
//	}
package botlang
