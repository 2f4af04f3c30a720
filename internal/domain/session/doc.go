// Package session drives the command loop for one user.
//
// A Session owns the user's tree, an executor over it and the sink fanout
// that clients subscribe to. Submit feeds one line of input: it either
// starts a new command line or answers the confirmation the running line
// is parked at. Scripts hold an exclusive flag while they run; while it is
// held, input other than a confirmation answer is rejected.
//
// Trees are persisted through a vfs.Persister after every line that
// changed them. A failed save is shown to the user as a warning and never
// fails the command that caused it.
//
// The Manager keeps one session per user:
//
//	manager := session.NewManager(session.ManagerOptions{
//		Registry:  registry,
//		Persister: vfs.NewPersister(store, logger),
//		Shell:     cfg.Shell,
//		Logger:    logger,
//	})
//	s, err := manager.Open(ctx, "guest")
//	unsubscribe := s.Subscribe(executor.NewWriterSink(os.Stdout, true))
//	defer unsubscribe()
//	outcome := s.Submit(ctx, "rm -r /tmp")
//	if outcome.Pending {
//		outcome = s.Submit(ctx, "YES")
//	}
package session
