package rule

import (
	"net"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Pattern classes are prebuilt predicates shared by every compiled rule
// that references them. A class accepts or rejects the full segment
// text; partial matches never count, so a class can never leak part of
// a value into the output.

var (
	numberClassRe   = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
	identClassRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	emailClassRe    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)+$`)
	uuidClassRe     = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	hexClassRe      = regexp.MustCompile(`^(0[xX])?[0-9a-fA-F]+$`)
	hostnameClassRe = regexp.MustCompile(`(?i)^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)+$`)
	urlClassRe      = regexp.MustCompile(`(?i)^[a-z][a-z0-9+.-]*://\S+$`)
	fpermClassRe    = regexp.MustCompile(`^[dlbcps-]?([r-][w-][xsStT-]){3}$`)
)

// datetimeClassRes cover the date and time shapes that survive
// segmentation as a single token: ISO dates with an optional
// T-separated time and zone, bare clock times, and slash dates.
var datetimeClassRes = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}(:\d{2})?(\.\d+)?(Z|[+-]\d{2}:?\d{2})?)?$`),
	regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`),
	regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`),
}

var classPredicates = map[string]func(string) bool{
	"word":       isWordClass,
	"number":     numberClassRe.MatchString,
	"identifier": identClassRe.MatchString,
	"email":      emailClassRe.MatchString,
	"ipv4":       isIPv4Class,
	"ipv6":       isIPv6Class,
	"ip":         func(s string) bool { return isIPv4Class(s) || isIPv6Class(s) },
	"mac":        isMACClass,
	"uuid":       uuidClassRe.MatchString,
	"hex":        hexClassRe.MatchString,
	"hostname":   hostnameClassRe.MatchString,
	"url":        urlClassRe.MatchString,
	"datetime":   isDatetimeClass,
	"fperm":      fpermClassRe.MatchString,
}

// classAliases maps spelling variants accepted in rule definitions to
// canonical class names.
var classAliases = map[string]string{
	"email-like": "email",
	"ip-like":    "ip",
	"uuid-like":  "uuid",
	"host":       "hostname",
	"domain":     "hostname",
	"url-like":   "url",
	"date":       "datetime",
	"time":       "datetime",
	"perm":       "fperm",
}

// ClassNames returns the canonical pattern class names in sorted order.
func ClassNames() []string {
	names := make([]string, 0, len(classPredicates))
	for name := range classPredicates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupClass(name string) (func(string) bool, string, bool) {
	canonical := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := classAliases[canonical]; ok {
		canonical = alias
	}
	pred, ok := classPredicates[canonical]
	return pred, canonical, ok
}

func isWordClass(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func isIPv4Class(s string) bool {
	if strings.Count(s, ".") != 3 {
		return false
	}
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil
}

func isIPv6Class(s string) bool {
	if !strings.Contains(s, ":") {
		return false
	}
	return net.ParseIP(s) != nil
}

func isMACClass(s string) bool {
	_, err := net.ParseMAC(s)
	return err == nil
}

func isDatetimeClass(s string) bool {
	for _, re := range datetimeClassRes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
