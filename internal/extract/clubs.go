package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/racketdata/ttsync/pkg/entities"
	"github.com/racketdata/ttsync/pkg/errors"
	"github.com/racketdata/ttsync/pkg/optional"
)

// clubOptionPattern splits a club <option> label into "CODE - NAME".
var clubOptionPattern = regexp.MustCompile(`^([A-Za-z0-9\-_]+)\s*-\s*(.+)$`)

// Clubs extracts the club list from the rankings page. Clubs appear as
// options of the first <select>; the placeholder options ("-- ...") are
// skipped. Province is derived from the code prefix at extraction time so
// the merge sees it as a present value.
func Clubs(raw []byte) ([]entities.Club, []error) {
	doc, err := newDocument(raw, "clubs")
	if err != nil {
		return nil, []error{err}
	}

	sel := doc.Find("select").First()
	if sel.Length() == 0 {
		return nil, []error{errors.NewExtractionError("clubs", "no select element on page")}
	}

	var clubs []entities.Club
	var errs []error

	sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		text := trimmed(opt.Text())
		if text == "" || strings.HasPrefix(text, "--") {
			return
		}

		m := clubOptionPattern.FindStringSubmatch(text)
		if m == nil {
			errs = append(errs, errors.NewExtractionError("clubs", "unrecognized option: "+text))
			return
		}

		code := trimmed(m[1])
		clubs = append(clubs, entities.Club{
			Code:     code,
			Name:     optional.OfNonEmpty(trimmed(m[2])),
			Province: entities.DeriveProvince(code),
		})
	})

	if len(clubs) == 0 && len(errs) == 0 {
		errs = append(errs, errors.NewExtractionError("clubs", "select has no club options"))
	}
	return clubs, errs
}
