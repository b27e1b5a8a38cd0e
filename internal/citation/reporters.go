package citation

import "strings"

// reporterInfo describes a recognized reporter abbreviation
type reporterInfo struct {
	canonical string
	federal   bool
	level     string // "supreme", "appellate", "trial", "mixed"
}

// reporters is keyed by reporterKey(canonical). Read only.
var reporters = func() map[string]reporterInfo {
	entries := []reporterInfo{
		{"U.S.", true, "supreme"},
		{"S. Ct.", true, "supreme"},
		{"L. Ed.", true, "supreme"},
		{"L. Ed. 2d", true, "supreme"},
		{"F.", true, "appellate"},
		{"F.2d", true, "appellate"},
		{"F.3d", true, "appellate"},
		{"F.4th", true, "appellate"},
		{"F. App'x", true, "appellate"},
		{"F. Supp.", true, "trial"},
		{"F. Supp. 2d", true, "trial"},
		{"F. Supp. 3d", true, "trial"},
		{"F.R.D.", true, "trial"},
		{"B.R.", true, "trial"},
		{"Fed. Cl.", true, "trial"},
		{"A.", false, "mixed"},
		{"A.2d", false, "mixed"},
		{"A.3d", false, "mixed"},
		{"N.E.", false, "mixed"},
		{"N.E.2d", false, "mixed"},
		{"N.E.3d", false, "mixed"},
		{"N.W.", false, "mixed"},
		{"N.W.2d", false, "mixed"},
		{"P.", false, "mixed"},
		{"P.2d", false, "mixed"},
		{"P.3d", false, "mixed"},
		{"S.E.", false, "mixed"},
		{"S.E.2d", false, "mixed"},
		{"S.W.", false, "mixed"},
		{"S.W.2d", false, "mixed"},
		{"S.W.3d", false, "mixed"},
		{"So.", false, "mixed"},
		{"So. 2d", false, "mixed"},
		{"So. 3d", false, "mixed"},
		{"Cal.", false, "supreme"},
		{"Cal. 2d", false, "supreme"},
		{"Cal. 3d", false, "supreme"},
		{"Cal. 4th", false, "supreme"},
		{"Cal. 5th", false, "supreme"},
		{"Cal. Rptr.", false, "mixed"},
		{"Cal. Rptr. 2d", false, "mixed"},
		{"Cal. Rptr. 3d", false, "mixed"},
		{"Cal. App. 4th", false, "appellate"},
		{"Cal. App. 5th", false, "appellate"},
		{"N.Y.", false, "supreme"},
		{"N.Y.2d", false, "supreme"},
		{"N.Y.3d", false, "supreme"},
		{"N.Y.S.", false, "mixed"},
		{"N.Y.S.2d", false, "mixed"},
		{"N.Y.S.3d", false, "mixed"},
		{"A.D.", false, "appellate"},
		{"A.D.2d", false, "appellate"},
		{"A.D.3d", false, "appellate"},
		{"Ill. 2d", false, "supreme"},
		{"Ill. App. 3d", false, "appellate"},
		{"Tex.", false, "supreme"},
	}
	m := make(map[string]reporterInfo, len(entries))
	for _, e := range entries {
		m[reporterKey(e.canonical)] = e
	}
	return m
}()

// reporterKey strips punctuation and case so "F. 3d", "F.3d" and "f3d" collide
func reporterKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '.', '\'', '’':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// LookupReporter returns the canonical abbreviation for a reporter, if recognized
func LookupReporter(reporter string) (string, bool) {
	info, ok := reporters[reporterKey(reporter)]
	if !ok {
		return "", false
	}
	return info.canonical, true
}

func reporterDetails(reporter string) (reporterInfo, bool) {
	info, ok := reporters[reporterKey(reporter)]
	return info, ok
}
