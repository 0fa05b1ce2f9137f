package pipeline

import (
	"recon/internal/issues"
	"recon/pkg/models"
)

// Merge collects the visits and issues of every readable document in input
// order. The first copy of a visit identifier wins: an identical later copy
// is dropped silently, a differing one is dropped with an IdentityConflict
// issue.
func Merge(r Result) ([]models.Visit, *issues.Log) {
	log := &issues.Log{}
	seen := make(map[string]int)
	var visits []models.Visit

	for _, doc := range r.Documents {
		if doc.Err != nil {
			continue
		}
		log.Add(doc.Issues...)
		for _, v := range doc.Visits {
			first, ok := seen[v.ID]
			if !ok {
				seen[v.ID] = len(visits)
				visits = append(visits, v)
				continue
			}
			kept := &visits[first]
			if models.SameContent(kept, &v) {
				continue
			}
			log.Add(issues.New(issues.IdentityConflict, v.Source,
				"visit %s %s %s #%s differs from the copy in %s",
				v.ClientCode, v.Date, v.Time, v.Reference, kept.Source).ForVisit(v.ID))
		}
	}
	return visits, log
}
