package model

// Verdict is a canonical verdict label from the closed enumeration seeded
// into the verdict table.
type Verdict string

const (
	VerdictGuilty          Verdict = "Guilty"
	VerdictNotGuilty       Verdict = "Not Guilty"
	VerdictDismissed       Verdict = "Dismissed"
	VerdictAcquitted       Verdict = "Acquitted"
	VerdictHungJury        Verdict = "Hung Jury"
	VerdictClaimantWins    Verdict = "Claimant Wins"
	VerdictDefendantWins   Verdict = "Defendant Wins"
	VerdictSettlement      Verdict = "Settlement"
	VerdictStruckOut       Verdict = "Struck Out"
	VerdictAppealDismissed Verdict = "Appeal Dismissed"
	VerdictAppealAllowed   Verdict = "Appeal Allowed"
	VerdictOther           Verdict = "Other"
)

// AllVerdicts returns the closed verdict enumeration in seed order.
func AllVerdicts() []Verdict {
	return []Verdict{
		VerdictGuilty,
		VerdictNotGuilty,
		VerdictDismissed,
		VerdictAcquitted,
		VerdictHungJury,
		VerdictClaimantWins,
		VerdictDefendantWins,
		VerdictSettlement,
		VerdictStruckOut,
		VerdictAppealDismissed,
		VerdictAppealAllowed,
		VerdictOther,
	}
}

// CoerceVerdict maps a free-text verdict phrase onto the closed enumeration.
// Anything the enrichment model produced outside the list collapses to Other,
// so an unexpected phrase never fails a load.
func CoerceVerdict(s string) Verdict {
	v := Verdict(s)
	for _, known := range AllVerdicts() {
		if v == known {
			return v
		}
	}
	return VerdictOther
}
