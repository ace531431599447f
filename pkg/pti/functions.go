package pti

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/rs/zerolog/log"
)

var englishBankHolidays = []string{
	"NewYearsDay", "GoodFriday", "EasterMonday", "MayDay", "SpringBank",
	"LateSummerBankHolidayNotScotland", "ChristmasDay", "BoxingDay",
	"ChristmasDayHoliday", "BoxingDayHoliday", "NewYearsDayHoliday",
}

var scottishBankHolidays = []string{
	"NewYearsDay", "Jan2ndScotland", "GoodFriday", "MayDay", "SpringBank",
	"AugustBankHolidayScotland", "ChristmasDay", "BoxingDay",
	"ChristmasDayHoliday", "BoxingDayHoliday", "NewYearsDayHoliday",
	"Jan2ndScotlandHoliday", "StAndrewsDay", "StAndrewsDayHoliday",
}

var licenceNumberPattern = regexp.MustCompile(`^[A-Z]{2}\d{7}$`)
var lineIDPattern = regexp.MustCompile(`^[0-9a-zA-Z]+:[0-9a-zA-Z:_.-]+$`)

const prohibitedChars = `,;[]{}^$`

var regexCache sync.Map

func cachedRegexp(pattern string) (*regexp.Regexp, error) {
	if cached, ok := regexCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Store(pattern, compiled)
	return compiled, nil
}

func nodeText(node *xmlquery.Node) string {
	if node == nil {
		return ""
	}
	return strings.TrimSpace(node.InnerText())
}

// ruleEnv is the function set a rule expression may call. Each element
// under test gets a fresh env bound to that node and the document.
func (e *Engine) ruleEnv(ctx context.Context, doc *Document, node *xmlquery.Node) map[string]any {
	return map[string]any{
		"node": node,

		"text": nodeText,
		"query": func(n *xmlquery.Node, expression string) []*xmlquery.Node {
			return xmlquery.Find(n, expression)
		},
		"query_one": func(n *xmlquery.Node, expression string) *xmlquery.Node {
			return xmlquery.FindOne(n, expression)
		},

		"contains": strings.Contains,
		"in_list": func(value string, options ...string) bool {
			for _, option := range options {
				if value == option {
					return true
				}
			}
			return false
		},
		"regex_matches": func(pattern string, value string) bool {
			compiled, err := cachedRegexp(pattern)
			if err != nil {
				log.Error().Str("pattern", pattern).Err(err).Msg("Bad rule regex")
				return false
			}
			return compiled.MatchString(value)
		},
		"today_in_range": todayInRange,
		"has_prohibited_chars": func(value string) bool {
			return strings.ContainsAny(value, prohibitedChars)
		},

		"valid_line_id": func(n *xmlquery.Node) bool {
			id := n.SelectAttr("id")
			return id != "" && lineIDPattern.MatchString(id)
		},
		"valid_licence_number": func(value string) bool {
			return licenceNumberPattern.MatchString(value)
		},
		"modification_ordering": modificationOrdering,

		"stop_ref_resolves": func(n *xmlquery.Node) bool {
			return stopRefResolves(doc, n)
		},
		"has_run_time": func(n *xmlquery.Node) bool {
			return hasRunTime(doc, n)
		},
		"timing_link_stops_consistent": timingLinkStopsConsistent,
		"flexible_times_consistent":    flexibleTimesConsistent,
		"has_flexible_or_standard_service": func(n *xmlquery.Node) bool {
			return xmlquery.FindOne(n, "StandardService") != nil || xmlquery.FindOne(n, "FlexibleService") != nil
		},
		"check_service_group_validations": func(n *xmlquery.Node) bool {
			return e.bankHolidaysComplete(ctx, doc, n)
		},
	}
}

func todayInRange(start string, end string) bool {
	today := time.Now().Format("2006-01-02")

	if start != "" && today < start {
		return false
	}
	if end != "" && today > end {
		return false
	}
	return true
}

// modificationOrdering checks ModificationDateTime never precedes
// CreationDateTime. Elements without both attributes pass.
func modificationOrdering(node *xmlquery.Node) bool {
	created := node.SelectAttr("CreationDateTime")
	modified := node.SelectAttr("ModificationDateTime")
	if created == "" || modified == "" {
		return true
	}

	createdAt, err := parseDateTime(created)
	if err != nil {
		return false
	}
	modifiedAt, err := parseDateTime(modified)
	if err != nil {
		return false
	}

	return !modifiedAt.Before(createdAt)
}

func parseDateTime(value string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02T15:04:05", value)
}

// stopRefResolves checks the element's stop-point reference is declared
// in the document's stop-point section.
func stopRefResolves(doc *Document, node *xmlquery.Node) bool {
	ref := node
	if node.Data != "StopPointRef" {
		ref = xmlquery.FindOne(node, ".//StopPointRef")
	}
	if ref == nil {
		return false
	}

	_, declared := doc.stopRefs[nodeText(ref)]
	return declared
}

// hasRunTime checks a vehicle journey carries run times, either on its
// own timing links or through its journey pattern's sections.
func hasRunTime(doc *Document, node *xmlquery.Node) bool {
	for _, runTime := range xmlquery.Find(node, ".//RunTime") {
		if nodeText(runTime) != "" {
			return true
		}
	}

	patternRef := nodeText(xmlquery.FindOne(node, "JourneyPatternRef"))
	if patternRef == "" {
		// inherits everything from the referenced journey
		return xmlquery.FindOne(node, "VehicleJourneyRef") != nil
	}

	pattern := xmlquery.FindOne(doc.Root, "//JourneyPattern[@id='"+patternRef+"']")
	if pattern == nil {
		return false
	}

	for _, sectionRef := range xmlquery.Find(pattern, "JourneyPatternSectionRefs") {
		section := xmlquery.FindOne(doc.Root, "//JourneyPatternSection[@id='"+nodeText(sectionRef)+"']")
		if section == nil {
			continue
		}
		for _, runTime := range xmlquery.Find(section, ".//RunTime") {
			if nodeText(runTime) != "" {
				return true
			}
		}
	}

	return false
}

// timingLinkStopsConsistent checks consecutive timing links of a section
// chain properly: each link's To stop is the next link's From stop.
func timingLinkStopsConsistent(node *xmlquery.Node) bool {
	links := xmlquery.Find(node, "JourneyPatternTimingLink")

	for i := 0; i+1 < len(links); i++ {
		to := nodeText(xmlquery.FindOne(links[i], "To/StopPointRef"))
		from := nodeText(xmlquery.FindOne(links[i+1], "From/StopPointRef"))
		if to == "" || from == "" || to != from {
			return false
		}
	}

	return true
}

// flexibleTimesConsistent checks a flexible vehicle journey declares its
// service times, either as periods or as all-day service.
func flexibleTimesConsistent(node *xmlquery.Node) bool {
	serviceTimes := xmlquery.Find(node, ".//FlexibleServiceTimes")
	if len(serviceTimes) == 0 {
		return false
	}

	for _, times := range serviceTimes {
		if xmlquery.FindOne(times, "ServicePeriod") == nil && xmlquery.FindOne(times, "AllDayService") == nil {
			return false
		}
	}

	return true
}

// bankHolidaysComplete checks the element's bank-holiday operation covers
// every holiday of the service's region. Scottish services are detected
// through the registration service.
func (e *Engine) bankHolidaysComplete(ctx context.Context, doc *Document, node *xmlquery.Node) bool {
	covered := map[string]struct{}{}
	for _, day := range xmlquery.Find(node, ".//BankHolidayOperation/DaysOfOperation/*") {
		covered[day.Data] = struct{}{}
	}
	for _, day := range xmlquery.Find(node, ".//BankHolidayOperation/DaysOfNonOperation/*") {
		covered[day.Data] = struct{}{}
	}

	if len(covered) == 0 {
		return false
	}
	if _, ok := covered["AllBankHolidays"]; ok {
		return true
	}

	required := englishBankHolidays
	if e.regions != nil && doc.ServiceRef != "" {
		scottish, err := e.regions.IsScottish(ctx, doc.ServiceRef)
		if err != nil {
			log.Warn().Str("service_ref", doc.ServiceRef).Err(err).Msg("Region lookup failed; assuming English holidays")
		} else if scottish {
			required = scottishBankHolidays
		}
	}

	for _, holiday := range required {
		if _, ok := covered[holiday]; !ok {
			return false
		}
	}

	return true
}
