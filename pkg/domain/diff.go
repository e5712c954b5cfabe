package domain

// StatusChange records one variant moving between statuses.
type StatusChange struct {
	VariantID string `json:"variant_id"`
	From      Status `json:"from"`
	To        Status `json:"to"`
}

// RunDiff represents the changes to one run between two documents.
// It is what callers log or stream after a mutation.
type RunDiff struct {
	RunID string `json:"run_id"`

	// PassThreshold is set when the threshold changed.
	PassThreshold *int `json:"pass_threshold,omitempty"`

	// BestVariantID is set when the best pointer moved; an empty string means it was cleared.
	BestVariantID *string `json:"best_variant_id,omitempty"`

	Statuses []StatusChange `json:"statuses,omitempty"`
}

// Diff calculates the difference for runID between oldDoc and newDoc.
// If oldDoc is nil, every variant of the run is reported as coming from draft.
// It returns nil when nothing changed or the run is absent from newDoc.
func Diff(oldDoc, newDoc *Document, runID string) *RunDiff {
	if newDoc == nil {
		return nil
	}
	newRun := newDoc.Run(runID)
	if newRun == nil {
		return nil
	}

	var oldRun *Run
	if oldDoc != nil {
		oldRun = oldDoc.Run(runID)
	}

	diff := &RunDiff{RunID: runID}

	if oldRun == nil || oldRun.PassThreshold != newRun.PassThreshold {
		t := newRun.PassThreshold
		diff.PassThreshold = &t
	}
	if best := bestOf(newRun); oldRun == nil || bestOf(oldRun) != best {
		diff.BestVariantID = &best
	}

	before := make(map[string]Status)
	if oldDoc != nil {
		for _, v := range oldDoc.Variants {
			if v.RunID == runID {
				before[v.ID] = v.Status
			}
		}
	}
	for _, v := range newDoc.Variants {
		if v.RunID != runID {
			continue
		}
		from, ok := before[v.ID]
		if !ok {
			from = StatusDraft
		}
		if from != v.Status {
			diff.Statuses = append(diff.Statuses, StatusChange{VariantID: v.ID, From: from, To: v.Status})
		}
	}

	if diff.PassThreshold == nil && diff.BestVariantID == nil && len(diff.Statuses) == 0 {
		return nil
	}
	return diff
}

func bestOf(r *Run) string {
	if r.BestVariantID == nil {
		return ""
	}
	return *r.BestVariantID
}

// RunSnapshot returns a document holding copies of runID and its variants only,
// enough to Diff against later without cloning the whole document.
func (d *Document) RunSnapshot(runID string) *Document {
	snap := &Document{Version: d.Version}
	if r := d.Run(runID); r != nil {
		snap.Runs = []Run{r.Clone()}
		snap.Variants = d.VariantsOf(runID)
	}
	return snap
}
