package maestro

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Wait blocks until the table reaches its terminal wait state: an
// external table starts running, an internal table records a new
// successful run. Status is polled with decaying, jittered intervals
// up to the handle's MaxSleep ceiling; on the terminal state the
// cached snapshot is refreshed with one final full status fetch.
//
// Wait has no deadline of its own. It returns early only when the
// context is cancelled, or with a *RemoteError when the server reports
// that the table's run failed; transport errors from a status fetch
// are returned as-is and not retried here.
func (t *Table) Wait(ctx context.Context) error {
	fields := logrus.Fields{
		"table": t.Dataset() + "." + t.Name(),
		"id":    t.id,
	}

	if t.External() {
		t.log.WithFields(fields).Info("waiting for external table to start running")
		if err := t.waitExternal(ctx); err != nil {
			return err
		}
	} else {
		t.log.WithFields(fields).Info("waiting for table to complete a new run")
		if err := t.waitInternal(ctx); err != nil {
			return err
		}
	}

	return t.refresh(ctx)
}

// waitExternal polls until the running flag turns true. The machine
// starts not-running regardless of the cached snapshot: only a fresh
// observation counts.
func (t *Table) waitExternal(ctx context.Context) error {
	sched := t.newSchedule()
	for {
		st, err := t.api.ShortStatus(ctx, t.id)
		if err != nil {
			return err
		}
		if st.Error != "" {
			return &RemoteError{Table: t.Name(), Message: st.Error}
		}

		t.status.Running = st.Running()
		t.status.LastOkRunEndAt = st.LastOkRunEndAt

		if st.Running() {
			return nil
		}
		if err := t.sleep(ctx, sched.Next()); err != nil {
			return err
		}
	}
}

// waitInternal polls until the last successful run timestamp advances
// past the baseline captured at call start.
func (t *Table) waitInternal(ctx context.Context) error {
	baseline := t.status.LastOkRunEndAt

	sched := t.newSchedule()
	for {
		st, err := t.api.ShortStatus(ctx, t.id)
		if err != nil {
			return err
		}
		if st.Error != "" {
			return &RemoteError{Table: t.Name(), Message: st.Error}
		}

		t.status.Running = st.Running()
		t.status.LastOkRunEndAt = st.LastOkRunEndAt

		if st.LastOkRunEndAt.After(baseline) {
			return nil
		}
		if err := t.sleep(ctx, sched.Next()); err != nil {
			return err
		}
	}
}
