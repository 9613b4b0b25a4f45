package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/LinfanS/court-transcripts-pipeline/internal/model"
)

// Loader writes one resolved batch to the store in dependency order:
// independent entities first, then lawyers (which reference firms), then
// case rows (which reference courts and verdicts), then the association
// tables. Each phase inserts then reads the name-to-id map back, so rows
// that already existed resolve to their original ids.
type Loader struct {
	store Store
}

// NewLoader creates a batch loader.
func NewLoader(s Store) *Loader {
	return &Loader{store: s}
}

// LoadResult reports what one batch load did.
type LoadResult struct {
	Loaded   int
	Skipped  int
	Failures []CaseFailure
}

// CaseFailure records why one case, or one of its associations, was skipped.
type CaseFailure struct {
	Citation string
	Reason   string
}

// Load writes a batch. A failed write aborts the batch with an error; a
// single case whose references cannot be resolved is skipped and reported in
// the result instead.
func (l *Loader) Load(ctx context.Context, batch *model.Batch) (*LoadResult, error) {
	result := &LoadResult{}
	if len(batch.Cases) == 0 {
		return result, nil
	}

	var courts, judges, tags, firms, participants []string
	for _, c := range batch.Cases {
		courts = append(courts, c.Court)
		judges = append(judges, c.Judges...)
		tags = append(tags, c.Tags...)
		for _, rep := range c.Sides {
			participants = append(participants, rep.Participant)
			if rep.LawFirm != nil {
				firms = append(firms, *rep.LawFirm)
			}
		}
	}

	if err := l.store.InsertCourts(ctx, courts); err != nil {
		return nil, err
	}
	if err := l.store.InsertJudges(ctx, judges); err != nil {
		return nil, err
	}
	if err := l.store.InsertTags(ctx, tags); err != nil {
		return nil, err
	}
	if err := l.store.InsertLawFirms(ctx, firms); err != nil {
		return nil, err
	}
	if err := l.store.InsertParticipants(ctx, participants); err != nil {
		return nil, err
	}

	courtMap, err := l.store.CourtMap(ctx)
	if err != nil {
		return nil, err
	}
	verdictMap, err := l.store.VerdictMap(ctx)
	if err != nil {
		return nil, err
	}
	judgeMap, err := l.store.JudgeMap(ctx)
	if err != nil {
		return nil, err
	}
	tagMap, err := l.store.TagMap(ctx)
	if err != nil {
		return nil, err
	}
	firmMap, err := l.store.LawFirmMap(ctx)
	if err != nil {
		return nil, err
	}
	participantMap, err := l.store.ParticipantMap(ctx)
	if err != nil {
		return nil, err
	}

	lawyerMap, err := l.loadLawyers(ctx, batch, firmMap)
	if err != nil {
		return nil, err
	}

	var caseRows []CaseRow
	var loadable []model.CaseRecord
	for _, c := range batch.Cases {
		courtID, courtOK := courtMap[c.Court]
		verdictID, verdictOK := verdictMap[string(model.CoerceVerdict(c.Verdict))]
		if !courtOK || !verdictOK {
			result.Skipped++
			result.Failures = append(result.Failures, CaseFailure{
				Citation: c.Citation,
				Reason:   "unresolved court or verdict",
			})
			zap.L().Warn("load: skipping case with unresolved references",
				zap.String("citation", c.Citation),
				zap.String("court", c.Court),
				zap.String("verdict", c.Verdict),
			)
			continue
		}
		caseRows = append(caseRows, CaseRow{
			Citation:       c.Citation,
			Summary:        c.Summary,
			VerdictID:      verdictID,
			Title:          c.Title,
			Date:           c.Date,
			CaseNumber:     c.CaseNumber,
			URL:            c.URL,
			CourtID:        courtID,
			VerdictSummary: c.VerdictSummary,
		})
		loadable = append(loadable, c)
	}

	if err := l.store.InsertCases(ctx, caseRows); err != nil {
		return nil, err
	}
	result.Loaded = len(caseRows)

	var judgeRows []JudgeAssignment
	var tagRows []TagAssignment
	var partRows []ParticipantAssignment
	for _, c := range loadable {
		for i, id := range judgeMap.Resolve(c.Judges) {
			if id == nil {
				l.reportAssociation(result, c.Citation, "judge", c.Judges[i])
				continue
			}
			judgeRows = append(judgeRows, JudgeAssignment{Citation: c.Citation, JudgeID: *id})
		}
		for i, id := range tagMap.Resolve(c.Tags) {
			if id == nil {
				l.reportAssociation(result, c.Citation, "tag", c.Tags[i])
				continue
			}
			tagRows = append(tagRows, TagAssignment{Citation: c.Citation, TagID: *id})
		}
		for _, rep := range c.Sides {
			pid, ok := participantMap[rep.Participant]
			if !ok {
				l.reportAssociation(result, c.Citation, "participant", rep.Participant)
				continue
			}
			row := ParticipantAssignment{
				Citation:      c.Citation,
				ParticipantID: pid,
				IsDefendant:   rep.IsDefendant,
			}
			if rep.Lawyer != "" {
				if key, keyOK := lawyerKeyFor(rep, firmMap); !keyOK {
					l.reportAssociation(result, c.Citation, "law firm", *rep.LawFirm)
				} else if lid, ok := lawyerMap[key]; ok {
					v := lid
					row.LawyerID = &v
				} else {
					l.reportAssociation(result, c.Citation, "lawyer", rep.Lawyer)
				}
			}
			partRows = append(partRows, row)
		}
	}

	if err := l.store.InsertJudgeAssignments(ctx, judgeRows); err != nil {
		return nil, err
	}
	if err := l.store.InsertTagAssignments(ctx, tagRows); err != nil {
		return nil, err
	}
	if err := l.store.InsertParticipantAssignments(ctx, partRows); err != nil {
		return nil, err
	}
	return result, nil
}

// loadLawyers inserts every represented lawyer and returns the identity map.
// The same name at two firms is two rows; a lawyer without a recorded firm
// keys on firm id 0.
func (l *Loader) loadLawyers(ctx context.Context, batch *model.Batch, firmMap IDMap) (LawyerMap, error) {
	seen := make(map[LawyerKey]struct{})
	var rows []LawyerRow
	for _, c := range batch.Cases {
		for _, rep := range c.Sides {
			if rep.Lawyer == "" {
				continue
			}
			key, ok := lawyerKeyFor(rep, firmMap)
			if !ok {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			row := LawyerRow{Name: rep.Lawyer}
			if key.FirmID != 0 {
				v := key.FirmID
				row.FirmID = &v
			}
			rows = append(rows, row)
		}
	}
	if err := l.store.InsertLawyers(ctx, rows); err != nil {
		return nil, err
	}
	return l.store.LawyerIdentityMap(ctx)
}

// lawyerKeyFor builds the identity key for a representation. ok is false
// when a recorded firm name failed to map; such a lawyer must not be keyed
// as firm-less.
func lawyerKeyFor(rep model.Representation, firmMap IDMap) (LawyerKey, bool) {
	key := LawyerKey{Name: rep.Lawyer}
	if rep.LawFirm != nil {
		id, ok := firmMap[*rep.LawFirm]
		if !ok {
			return key, false
		}
		key.FirmID = id
	}
	return key, true
}

func (l *Loader) reportAssociation(result *LoadResult, citation, kind, name string) {
	result.Failures = append(result.Failures, CaseFailure{
		Citation: citation,
		Reason:   "unresolved " + kind + ": " + name,
	})
	zap.L().Warn("load: skipping unresolved association",
		zap.String("citation", citation),
		zap.String("kind", kind),
		zap.String("name", name),
	)
}
