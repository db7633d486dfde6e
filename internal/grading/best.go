package grading

import "paper-attempt-service/internal/domain"

// Better reports whether a ranks above b: more points, then higher
// percentage, then the later submission.
func Better(a, b domain.Attempt) bool {
	if a.TotalPointsEarned != b.TotalPointsEarned {
		return a.TotalPointsEarned > b.TotalPointsEarned
	}
	if a.Percentage != b.Percentage {
		return a.Percentage > b.Percentage
	}
	return submittedUnix(a) > submittedUnix(b)
}

// Eligible reports whether the attempt may represent a paper result.
func Eligible(a domain.Attempt) bool {
	return a.Status == domain.StatusSubmitted && a.SubmittedAt != nil
}

// BestOf picks the best eligible attempt. ok is false when none qualifies.
func BestOf(attempts []domain.Attempt) (best domain.Attempt, ok bool) {
	for _, a := range attempts {
		if !Eligible(a) {
			continue
		}
		if !ok || Better(a, best) {
			best, ok = a, true
		}
	}
	return best, ok
}

// BestPerPaper groups one student's attempts by paper and keeps the best of each.
func BestPerPaper(attempts []domain.Attempt) map[string]domain.Attempt {
	grouped := make(map[string][]domain.Attempt)
	for _, a := range attempts {
		grouped[a.PaperID] = append(grouped[a.PaperID], a)
	}
	out := make(map[string]domain.Attempt, len(grouped))
	for paperID, list := range grouped {
		if best, ok := BestOf(list); ok {
			out[paperID] = best
		}
	}
	return out
}

func submittedUnix(a domain.Attempt) int64 {
	if a.SubmittedAt == nil {
		return 0
	}
	return a.SubmittedAt.UnixNano()
}
