package calls

import "time"

// MergeUpdate applies an incoming version of a call onto the stored one.
//
// Provider callbacks arrive out of order and carry partial data, so:
//   - the first known start time is kept
//   - empty text fields never erase stored values
//   - a terminal status is not reverted to active by a late callback
//   - duration is only replaced by a positive value
//   - metadata keys are merged, incoming wins
func MergeUpdate(existing, incoming CallRecord) CallRecord {
	out := existing

	if out.StartedAt.IsZero() {
		out.StartedAt = incoming.StartedAt
	}
	if incoming.EndedAt != nil {
		end := *incoming.EndedAt
		out.EndedAt = &end
	}
	if incoming.DurationSeconds > 0 {
		out.DurationSeconds = incoming.DurationSeconds
	}
	if !(existing.Status.Terminal() && incoming.Status == StatusActive) {
		out.Status = incoming.Status
	}

	out.ProviderCallID = firstNonEmpty(incoming.ProviderCallID, existing.ProviderCallID)
	out.PhoneNumber = firstNonEmpty(incoming.PhoneNumber, existing.PhoneNumber)
	out.CallerName = firstNonEmpty(incoming.CallerName, existing.CallerName)
	out.CallType = firstNonEmpty(incoming.CallType, existing.CallType)
	out.TransferReason = firstNonEmpty(incoming.TransferReason, existing.TransferReason)
	out.Transcript = firstNonEmpty(incoming.Transcript, existing.Transcript)
	out.Summary = firstNonEmpty(incoming.Summary, existing.Summary)
	out.Notes = firstNonEmpty(incoming.Notes, existing.Notes)

	out.AIHandled = existing.AIHandled || incoming.AIHandled
	out.HumanTransferred = existing.HumanTransferred || incoming.HumanTransferred
	if incoming.SatisfactionScore != nil {
		s := *incoming.SatisfactionScore
		out.SatisfactionScore = &s
	}

	if len(incoming.Metadata) > 0 {
		merged := make(map[string]any, len(existing.Metadata)+len(incoming.Metadata))
		for k, v := range existing.Metadata {
			merged[k] = v
		}
		for k, v := range incoming.Metadata {
			merged[k] = v
		}
		out.Metadata = merged
	}

	out.UpdatedAt = later(existing.UpdatedAt, incoming.UpdatedAt)
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
