// Package autonum provides a reference automatic-numbering post-processor:
// it numbers articles and recitals sequentially in document order by
// rewriting the text of each element's num child in place.
package autonum

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/atlas-foundry/akn-numbering-go-sdk/xmledit"
	"github.com/atlas-foundry/akn-numbering-go-sdk/xmlnav"
)

const (
	DefaultArticleFormat = "Article %d"
	DefaultRecitalFormat = "(%d)"
)

// Sequential implements numbering.PostProcessor. The zero value is usable.
type Sequential struct {
	ArticleFormat string // fmt verb receiving the 1-based index
	RecitalFormat string
	NumTag        string
	Logger        *zap.Logger
}

// Process numbers both articles and recitals in a single materialization.
func (s Sequential) Process(xml []byte) ([]byte, error) {
	return s.number(xml, s.articleFormat(), s.recitalFormat())
}

// Articles numbers articles only.
func (s Sequential) Articles(xml []byte) ([]byte, error) {
	return s.number(xml, s.articleFormat(), "")
}

// Recitals numbers recitals only.
func (s Sequential) Recitals(xml []byte) ([]byte, error) {
	return s.number(xml, "", s.recitalFormat())
}

type target struct {
	loc  xmlnav.Location
	text string
}

func (s Sequential) number(xml []byte, articleFormat, recitalFormat string) ([]byte, error) {
	numTag := s.NumTag
	if numTag == "" {
		numTag = "num"
	}
	nums, err := xmlnav.LocateAll(xml, numTag, xmlnav.Options{})
	if err != nil {
		return nil, fmt.Errorf("autonum: %w", err)
	}
	var targets []target
	for _, kind := range []struct{ tag, format string }{
		{"article", articleFormat},
		{"recital", recitalFormat},
	} {
		if kind.format == "" {
			continue
		}
		containers, err := xmlnav.LocateAll(xml, kind.tag, xmlnav.Options{Axis: xmlnav.AxisDescendantOrSelf})
		if err != nil {
			return nil, fmt.Errorf("autonum: %w", err)
		}
		n := 0
		for _, c := range containers {
			num, ok := firstChildNum(c, nums)
			if !ok {
				continue
			}
			n++
			targets = append(targets, target{loc: num, text: fmt.Sprintf(kind.format, n)})
		}
		s.logger().Debug("numbered elements", zap.String("tag", kind.tag), zap.Int("count", n))
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].loc.Text.Offset < targets[j].loc.Text.Offset })
	m := xmledit.NewModifier(xml)
	for _, t := range targets {
		if err := m.UpdateToken(t.loc, t.text); err != nil {
			return nil, fmt.Errorf("autonum: %w", err)
		}
	}
	return m.Bytes()
}

// firstChildNum returns the first num directly inside c that carries text.
// nums is ordered by start offset.
func firstChildNum(c xmlnav.Location, nums []xmlnav.Location) (xmlnav.Location, bool) {
	i := sort.Search(len(nums), func(i int) bool { return nums[i].Start > c.Start })
	for ; i < len(nums) && nums[i].Start < c.End; i++ {
		if nums[i].Depth == c.Depth+1 {
			return nums[i], nums[i].HasText
		}
	}
	return xmlnav.Location{}, false
}

func (s Sequential) articleFormat() string {
	if s.ArticleFormat == "" {
		return DefaultArticleFormat
	}
	return s.ArticleFormat
}

func (s Sequential) recitalFormat() string {
	if s.RecitalFormat == "" {
		return DefaultRecitalFormat
	}
	return s.RecitalFormat
}

func (s Sequential) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
