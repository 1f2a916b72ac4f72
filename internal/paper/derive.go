package paper

import "regexp"

// arXiv id patterns: modern (2301.12345, optional version) and legacy
// (math/0309136), as they appear in URLs and DataCite DOIs.
var arxivPatterns = []*regexp.Regexp{
	regexp.MustCompile(`arxiv\.org/abs/(\d{4}\.\d{4,5}(?:v\d+)?)`),
	regexp.MustCompile(`arxiv\.org/pdf/(\d{4}\.\d{4,5}(?:v\d+)?)`),
	regexp.MustCompile(`arxiv\.org/abs/([a-z-]+/\d{7})`),
	regexp.MustCompile(`10\.48550/arXiv\.(\d{4}\.\d{4,5}(?:v\d+)?)`),
}

// ExtractArxivID extracts an arXiv identifier from a URL or DOI.
// Returns "" when neither contains one.
func ExtractArxivID(url, doi string) string {
	for _, source := range []string{url, doi} {
		if source == "" {
			continue
		}
		for _, pattern := range arxivPatterns {
			if m := pattern.FindStringSubmatch(source); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

var venuePatterns = []struct {
	pattern *regexp.Regexp
	venue   string
}{
	{regexp.MustCompile(`(?i)neural\s+information\s+processing|neurips|nips`), "NeurIPS"},
	{regexp.MustCompile(`(?i)international\s+conference\s+on\s+machine\s+learning|\bicml\b`), "ICML"},
	{regexp.MustCompile(`(?i)international\s+conference\s+on\s+learning\s+representations|\biclr\b`), "ICLR"},
	{regexp.MustCompile(`(?i)computer\s+vision\s+and\s+pattern\s+recognition|\bcvpr\b`), "CVPR"},
	// ICCV sits after CVPR so "computer vision and pattern recognition"
	// resolves to CVPR first.
	{regexp.MustCompile(`(?i)international\s+conference\s+on\s+computer\s+vision|\biccv\b`), "ICCV"},
	{regexp.MustCompile(`(?i)european\s+conference\s+on\s+computer\s+vision|\beccv\b`), "ECCV"},
	{regexp.MustCompile(`(?i)association\s+for\s+computational\s+linguistics|\bacl\b`), "ACL"},
	{regexp.MustCompile(`(?i)empirical\s+methods\s+in\s+natural\s+language\s+processing|\bemnlp\b`), "EMNLP"},
	{regexp.MustCompile(`(?i)north\s+american.*computational\s+linguistics|\bnaacl\b`), "NAACL"},
	{regexp.MustCompile(`(?i)association\s+for\s+the\s+advancement\s+of\s+artificial|\baaai\b`), "AAAI"},
	{regexp.MustCompile(`(?i)knowledge\s+discovery.*data\s+mining|\bkdd\b`), "KDD"},
	{regexp.MustCompile(`(?i)international\s+conference\s+on\s+robotics\s+and\s+automation|\bicra\b`), "ICRA"},
	{regexp.MustCompile(`(?i)robotics.*science\s+and\s+systems|\brss\b`), "RSS"},
	{regexp.MustCompile(`(?i)conference\s+on\s+robot\s+learning|\bcorl\b`), "CoRL"},
	{regexp.MustCompile(`(?i)\bijcv\b|international\s+journal\s+of\s+computer\s+vision`), "IJCV"},
	{regexp.MustCompile(`(?i)transactions\s+on\s+pattern\s+analysis.*machine\s+intelligence|\btpami\b|ieee\s+trans.*pami`), "TPAMI"},
	{regexp.MustCompile(`(?i)transactions\s+on\s+neural\s+networks|\btnnls\b`), "TNNLS"},
	{regexp.MustCompile(`(?i)journal\s+of\s+machine\s+learning\s+research|\bjmlr\b`), "JMLR"},
	{regexp.MustCompile(`(?i)\bnature\b`), "Nature"},
	{regexp.MustCompile(`(?i)\bscience\b`), "Science"},
	{regexp.MustCompile(`(?i)\barxiv\b`), "arXiv"},
}

// NormalizeVenue maps a journal or book title to a canonical short venue
// name. Falls back to the raw journal, then book title, then "".
func NormalizeVenue(journal, bookTitle string) string {
	for _, source := range []string{journal, bookTitle} {
		if source == "" {
			continue
		}
		for _, vp := range venuePatterns {
			if vp.pattern.MatchString(source) {
				return vp.venue
			}
		}
	}
	if journal != "" {
		return journal
	}
	return bookTitle
}
