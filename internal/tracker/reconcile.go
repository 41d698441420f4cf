package tracker

import (
	"context"
	"sort"

	"github.com/roach88/hackpath/internal/content"
)

// Outcome describes one anonymous -> authenticated reconciliation.
type Outcome struct {
	From        content.Identity
	Identity    content.Identity // target
	Merged      content.Snapshot
	Fingerprint string

	// Success is true once the remote confirmed every merged record.
	Success bool
	// Cleared is true when the anonymous entry was removed from the KV.
	Cleared bool
	// Shared is true when this caller joined a reconciliation already in
	// flight for the same transition.
	Shared bool
}

// Reconciler merges anonymous progress into an account.
type Reconciler struct {
	remote Remote
	opts   options
}

// NewReconciler returns a reconciler writing to remote.
func NewReconciler(remote Remote, opts ...Option) *Reconciler {
	return &Reconciler{remote: remote, opts: buildOptions(opts)}
}

// Reconcile merges local's snapshot with remoteSnap, writes whatever the
// remote lacks, and clears the anonymous entry once the remote confirmed.
//
// On failure the anonymous entry is kept untouched and a *RemoteSyncError
// is returned; the Outcome still carries the merged snapshot so the caller
// can continue optimistically.
func (r *Reconciler) Reconcile(ctx context.Context, local *LocalTracker, to content.Identity, remoteSnap content.Snapshot) (Outcome, error) {
	anon, err := local.Snapshot(ctx)
	if err != nil {
		return Outcome{}, err
	}
	anonFP, err := content.Fingerprint(anon)
	if err != nil {
		return Outcome{}, err
	}

	merged := content.Merge(anon.Rekey(to.String()), remoteSnap).Rekey(to.String())
	fp, err := content.Fingerprint(merged)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{
		From:        local.Identity(),
		Identity:    to,
		Merged:      merged,
		Fingerprint: fp,
	}

	completions, positions := diff(merged, remoteSnap)
	r.opts.logger.Info("reconciling progress",
		"from", out.From.String(),
		"to", to.String(),
		"anon_completions", len(anon.Completions),
		"remote_completions", len(remoteSnap.Completions),
		"writes", len(completions)+len(positions),
		"fingerprint", fp,
	)

	// Confirmed writes are dropped from the queues so a retry only sends
	// what is still missing.
	err = r.opts.policy.Do(ctx, "reconcile", func(ctx context.Context) error {
		for len(completions) > 0 {
			if err := r.remote.UpsertCompletion(ctx, to, completions[0]); err != nil {
				return err
			}
			completions = completions[1:]
		}
		for len(positions) > 0 {
			if err := r.remote.UpsertRoutinePosition(ctx, to, positions[0]); err != nil {
				return err
			}
			positions = positions[1:]
		}
		return nil
	})
	if err != nil {
		r.opts.logger.Error("reconciliation failed; anonymous progress kept",
			"from", out.From.String(),
			"to", to.String(),
			"remaining", len(completions)+len(positions),
			"error", err,
		)
		return out, &RemoteSyncError{Op: "reconcile", Identity: to.String(), Err: err}
	}
	out.Success = true

	cleared, err := local.ClearIfUnchanged(anonFP)
	if err != nil {
		r.opts.logger.Warn("could not clear anonymous progress", "key", local.Key(), "error", err)
	}
	out.Cleared = cleared
	return out, nil
}

// diff returns the merged records the remote does not hold in the same form.
func diff(merged, remote content.Snapshot) ([]content.CompletionRecord, []content.RoutinePosition) {
	var completions []content.CompletionRecord
	for id, rec := range merged.Completions {
		have, ok := remote.Completions[id]
		if ok && have.ViewCount == rec.ViewCount && have.CompletedAt.Equal(rec.CompletedAt) {
			continue
		}
		completions = append(completions, rec)
	}
	sort.Slice(completions, func(i, j int) bool { return completions[i].NodeID < completions[j].NodeID })

	var positions []content.RoutinePosition
	for id, pos := range merged.Positions {
		have, ok := remote.Positions[id]
		if ok && have.Position == pos.Position && have.Progress == pos.Progress && have.UpdatedAt.Equal(pos.UpdatedAt) {
			continue
		}
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].RoutineID < positions[j].RoutineID })
	return completions, positions
}
