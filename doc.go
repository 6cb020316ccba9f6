// Package kcore provides a simulated single-CPU kernel core: priority
// scheduling with aging, process lifecycle with zombies and wait, counting
// semaphores and a timer-driven preemption bridge.
//
// Hosts typically interact with the kernel through the Service facade:
//
//	srv, _ := kcore.New(kcore.DefaultConfig())
//	status, err := srv.Boot(ctx)
//
// Boot runs the configured shell as the init process. Console lines reach it
// through srv.Runtime().Feed and the foreground process can be interrupted
// with srv.Runtime().Interrupt.
package kcore
