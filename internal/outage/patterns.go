package outage

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// monthNames maps Ukrainian and Russian genitive month names to months.
var monthNames = map[string]time.Month{
	"січня":     time.January,
	"января":    time.January,
	"лютого":    time.February,
	"февраля":   time.February,
	"березня":   time.March,
	"марта":     time.March,
	"квітня":    time.April,
	"апреля":    time.April,
	"травня":    time.May,
	"мая":       time.May,
	"червня":    time.June,
	"июня":      time.June,
	"липня":     time.July,
	"июля":      time.July,
	"серпня":    time.August,
	"августа":   time.August,
	"вересня":   time.September,
	"сентября":  time.September,
	"жовтня":    time.October,
	"октября":   time.October,
	"листопада": time.November,
	"ноября":    time.November,
	"грудня":    time.December,
	"декабря":   time.December,
}

// outageKeywords are lower-case stems; a message needs one of them to be considered.
var outageKeywords = []string{
	"відключен",
	"вимкнен",
	"знеструмлен",
	"графік",
	"електропостачан",
	"електроенергі",
	"світл",
	"отключен",
	"график",
	"электроснабжен",
	"электроэнерги",
	"без света",
}

var (
	timeRangeDashRE = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*[-–—]\s*(\d{1,2}):(\d{2})`)
	timeRangeWordRE = regexp.MustCompile(`(?i)(?:з|із|зі|від|с|от)\s+(\d{1,2}):(\d{2})\s+(?:до|по)\s+(\d{1,2}):(\d{2})`)
	numericDateRE   = regexp.MustCompile(`(\d{1,2})\.(\d{2})(?:\.(\d{4}|\d{2}))?`)
	isoDateRE       = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	namedDateRE     = regexp.MustCompile(`(?i)(\d{1,2})\s+(` + monthAlternation() + `)(?:\s+(\d{4}))?`)
	groupRE         = regexp.MustCompile(`(?i)(?:під|под)?(?:групп?[аиы]|черг[аи])\s*(?:№|#|:|-)?\s*(\d{1,2}(?:\.\d{1,2})*)`)
	locationRE      = regexp.MustCompile(`(?i)(вул\.|вулиц[яі]|ул\.|улиц[аеы]|мікрорайон[іу]?|микрорайон[еу]?|район[іиуе]?)\s*([^\n,;]+)`)
)

func monthAlternation() string {
	names := make([]string, 0, len(monthNames))
	for name := range monthNames {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return strings.Join(names, "|")
}

// MonthByName resolves a genitive month name, case-insensitively.
func MonthByName(name string) (time.Month, bool) {
	m, ok := monthNames[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

type span struct {
	start int
	end   int
}

func (s span) overlaps(other span) bool {
	return s.start < other.end && other.start < s.end
}

type timeMatch struct {
	span
	start Clock
	end   Clock
}

type dateMatch struct {
	span
	day     int
	month   time.Month
	year    int
	hasYear bool
}

type groupMatch struct {
	span
	id string
}

type locationMatch struct {
	span
	text string
}

// scanResult holds every claimed span of a message, each slice ordered by offset.
type scanResult struct {
	times     []timeMatch
	dates     []dateMatch
	groups    []groupMatch
	locations []locationMatch
}

// scanText claims spans in a fixed order: groups, times, dates, locations.
// A later kind never claims bytes already claimed by an earlier one.
func scanText(text string) scanResult {
	var res scanResult
	var claimed []span

	res.groups = findGroups(text)
	for _, g := range res.groups {
		claimed = append(claimed, g.span)
	}
	for _, tm := range findTimeRanges(text) {
		if overlapsAny(tm.span, claimed) {
			continue
		}
		res.times = append(res.times, tm)
	}
	for _, tm := range res.times {
		claimed = append(claimed, tm.span)
	}
	for _, d := range findDates(text) {
		if overlapsAny(d.span, claimed) {
			continue
		}
		res.dates = append(res.dates, d)
	}
	for _, d := range res.dates {
		claimed = append(claimed, d.span)
	}
	res.locations = findLocations(text, claimed)
	return res
}

func overlapsAny(s span, claimed []span) bool {
	for _, c := range claimed {
		if s.overlaps(c) {
			return true
		}
	}
	return false
}

func hasTimeRange(text string) bool {
	return len(findTimeRanges(text)) > 0
}

func findTimeRanges(text string) []timeMatch {
	var out []timeMatch
	for _, re := range []*regexp.Regexp{timeRangeDashRE, timeRangeWordRE} {
		wordForm := re == timeRangeWordRE
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			s := span{start: idx[0], end: idx[1]}
			if wordForm {
				if letterBefore(text, s.start) {
					continue
				}
			} else if digitOrColonBefore(text, s.start) {
				continue
			}
			if digitOrColonAfter(text, s.end) {
				continue
			}
			start, ok := parseClock(text[idx[2]:idx[3]], text[idx[4]:idx[5]], false)
			if !ok {
				continue
			}
			end, ok := parseClock(text[idx[6]:idx[7]], text[idx[8]:idx[9]], true)
			if !ok {
				continue
			}
			out = append(out, timeMatch{span: s, start: start, end: end})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].span.start < out[j].span.start })
	kept := out[:0]
	for _, tm := range out {
		if len(kept) > 0 && tm.span.overlaps(kept[len(kept)-1].span) {
			continue
		}
		kept = append(kept, tm)
	}
	return kept
}

// parseClock validates HH and MM. 24:00 is accepted as an end-of-day marker and becomes 00:00.
func parseClock(hh, mm string, allowMidnightEnd bool) (Clock, bool) {
	h, err := strconv.Atoi(hh)
	if err != nil {
		return Clock{}, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return Clock{}, false
	}
	if allowMidnightEnd && h == 24 && m == 0 {
		return Clock{}, true
	}
	if h < 0 || h > 23 {
		return Clock{}, false
	}
	return Clock{Hour: h, Minute: m}, true
}

func findDates(text string) []dateMatch {
	var out []dateMatch
	for _, idx := range numericDateRE.FindAllStringSubmatchIndex(text, -1) {
		s := span{start: idx[0], end: idx[1]}
		if numericBefore(text, s.start) || digitAfter(text, s.end) {
			continue
		}
		day, _ := strconv.Atoi(text[idx[2]:idx[3]])
		month, _ := strconv.Atoi(text[idx[4]:idx[5]])
		d := dateMatch{span: s, day: day, month: time.Month(month)}
		if idx[6] >= 0 {
			d.year = expandYear(text[idx[6]:idx[7]])
			d.hasYear = true
		}
		if !d.valid() {
			continue
		}
		out = append(out, d)
	}
	for _, idx := range isoDateRE.FindAllStringSubmatchIndex(text, -1) {
		s := span{start: idx[0], end: idx[1]}
		if numericBefore(text, s.start) || digitAfter(text, s.end) {
			continue
		}
		year, _ := strconv.Atoi(text[idx[2]:idx[3]])
		month, _ := strconv.Atoi(text[idx[4]:idx[5]])
		day, _ := strconv.Atoi(text[idx[6]:idx[7]])
		d := dateMatch{span: s, day: day, month: time.Month(month), year: year, hasYear: true}
		if !d.valid() {
			continue
		}
		out = append(out, d)
	}
	for _, idx := range namedDateRE.FindAllStringSubmatchIndex(text, -1) {
		s := span{start: idx[0], end: idx[1]}
		if numericBefore(text, s.start) || letterAfter(text, idx[5]) {
			continue
		}
		if idx[6] >= 0 && digitAfter(text, s.end) {
			continue
		}
		month, ok := MonthByName(text[idx[4]:idx[5]])
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(text[idx[2]:idx[3]])
		d := dateMatch{span: s, day: day, month: month}
		if idx[6] >= 0 {
			d.year, _ = strconv.Atoi(text[idx[6]:idx[7]])
			d.hasYear = true
		}
		if !d.valid() {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].span.start < out[j].span.start })
	kept := out[:0]
	for _, d := range out {
		if len(kept) > 0 && d.span.overlaps(kept[len(kept)-1].span) {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

func (d dateMatch) valid() bool {
	year := d.year
	if !d.hasYear {
		// Leap year so that 29.02 is accepted before the year is known.
		year = 2000
	}
	_, ok := NewDate(year, d.month, d.day)
	return ok
}

func expandYear(s string) int {
	y, _ := strconv.Atoi(s)
	if len(s) == 2 {
		y += 2000
	}
	return y
}

func findGroups(text string) []groupMatch {
	var out []groupMatch
	for _, idx := range groupRE.FindAllStringSubmatchIndex(text, -1) {
		s := span{start: idx[0], end: idx[1]}
		if letterBefore(text, s.start) || digitAfter(text, s.end) {
			continue
		}
		out = append(out, groupMatch{span: s, id: text[idx[2]:idx[3]]})
	}
	return out
}

func findLocations(text string, claimed []span) []locationMatch {
	var out []locationMatch
	for offset := 0; offset < len(text); {
		rel := locationRE.FindStringSubmatchIndex(text[offset:])
		if rel == nil {
			break
		}
		idx := make([]int, len(rel))
		for i, v := range rel {
			idx[i] = v + offset
		}
		keyword := span{start: idx[2], end: idx[3]}
		// An inflected form ("районах", "вулицях") is not a marker.
		if !strings.HasSuffix(text[keyword.start:keyword.end], ".") && letterAfter(text, keyword.end) {
			offset = keyword.end
			continue
		}
		offset = idx[1]
		if letterBefore(text, keyword.start) || overlapsAny(keyword, claimed) {
			continue
		}
		end := idx[5]
		for _, c := range claimed {
			if c.start >= idx[4] && c.start < end {
				end = c.start
			}
		}
		value := strings.TrimRightFunc(strings.TrimSpace(text[idx[4]:end]), func(r rune) bool {
			return unicode.IsSpace(r) || strings.ContainsRune(".:-–—(", r)
		})
		if value == "" {
			continue
		}
		out = append(out, locationMatch{span: span{start: idx[0], end: end}, text: value})
	}
	return out
}

func runeBefore(text string, i int) (rune, bool) {
	if i <= 0 {
		return 0, false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return r, true
}

func runeAfter(text string, i int) (rune, bool) {
	if i >= len(text) {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return r, true
}

func letterBefore(text string, i int) bool {
	r, ok := runeBefore(text, i)
	return ok && unicode.IsLetter(r)
}

func letterAfter(text string, i int) bool {
	r, ok := runeAfter(text, i)
	return ok && unicode.IsLetter(r)
}

func digitAfter(text string, i int) bool {
	r, ok := runeAfter(text, i)
	return ok && unicode.IsDigit(r)
}

func digitOrColonBefore(text string, i int) bool {
	r, ok := runeBefore(text, i)
	return ok && (unicode.IsDigit(r) || r == ':')
}

func digitOrColonAfter(text string, i int) bool {
	r, ok := runeAfter(text, i)
	return ok && (unicode.IsDigit(r) || r == ':')
}

func numericBefore(text string, i int) bool {
	r, ok := runeBefore(text, i)
	return ok && (unicode.IsDigit(r) || r == '.' || r == ':')
}
