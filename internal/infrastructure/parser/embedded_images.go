package parser

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	imageClassExpr     = regexp.MustCompile(`^wp-image-(\d+)$`)
	galleryShortcode   = regexp.MustCompile(`\[gallery\b([^\]]*)\]`)
	galleryIDsAttr     = regexp.MustCompile(`\bids\s*=\s*["']?([\d,\s]+)`)
	galleryBlockExpr   = regexp.MustCompile(`<!--\s*wp:gallery\s+(\{.*?\})\s*/?-->`)
	shortcodeSeparator = regexp.MustCompile(`[,\s]+`)
)

// embeddedImageIDs returns the attachment ids of <img class="wp-image-N"> elements
// in document order, without duplicates.
func embeddedImageIDs(content string) ([]int64, error) {
	if !strings.Contains(content, "wp-image-") {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	var ids []int64
	seen := map[int64]struct{}{}
	doc.Find("img[class]").Each(func(_ int, img *goquery.Selection) {
		class, _ := img.Attr("class")
		for _, token := range strings.Fields(class) {
			match := imageClassExpr.FindStringSubmatch(token)
			if match == nil {
				continue
			}
			id, err := strconv.ParseInt(match[1], 10, 64)
			if err != nil || id <= 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	})

	return ids, nil
}

// galleryImageIDs collects the ids of [gallery ids="..."] shortcodes and legacy
// gallery block attributes in document order, without duplicates.
func galleryImageIDs(content string) []int64 {
	var ids []int64
	seen := map[int64]struct{}{}
	add := func(id int64) {
		if id <= 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	type located struct {
		pos int
		ids []int64
	}
	var found []located

	for _, loc := range galleryShortcode.FindAllStringSubmatchIndex(content, -1) {
		attrs := content[loc[2]:loc[3]]
		match := galleryIDsAttr.FindStringSubmatch(attrs)
		if match == nil {
			continue
		}
		var list []int64
		for _, field := range shortcodeSeparator.Split(strings.TrimSpace(match[1]), -1) {
			if id, err := strconv.ParseInt(field, 10, 64); err == nil {
				list = append(list, id)
			}
		}
		found = append(found, located{pos: loc[0], ids: list})
	}

	for _, loc := range galleryBlockExpr.FindAllStringSubmatchIndex(content, -1) {
		var attrs struct {
			IDs []int64 `json:"ids"`
		}
		if err := json.Unmarshal([]byte(content[loc[2]:loc[3]]), &attrs); err != nil {
			continue
		}
		found = append(found, located{pos: loc[0], ids: attrs.IDs})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	for _, f := range found {
		for _, id := range f.ids {
			add(id)
		}
	}
	return ids
}
