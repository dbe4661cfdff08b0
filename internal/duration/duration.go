// Package duration parses the simplified ISO-8601 duration strings carried by
// policy expiration rules and buckets hour counts for display.
package duration

import (
	"fmt"
	"regexp"
)

var (
	hourPart = regexp.MustCompile(`(\d+)H`)
	dayPart  = regexp.MustCompile(`(\d+)D`)
)

// ParseHours extracts the total hour count from a PnDTnHnM-style duration
// token such as "PT8H" or "P1DT2H". Total hours = H component + 24 x D
// component. Missing or unparseable input yields 0; callers that must
// distinguish "no limit" from "zero hours" check the raw string first.
func ParseHours(d string) int {
	if d == "" {
		return 0
	}
	hours := 0
	if m := hourPart.FindStringSubmatch(d); m != nil {
		hours += atoi(m[1])
	}
	if m := dayPart.FindStringSubmatch(d); m != nil {
		hours += 24 * atoi(m[1])
	}
	return hours
}

// atoi parses a digits-only submatch; the regexp guarantees the input.
func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// Histogram bucket labels in fixed display order. BucketNA is incremented by
// the chart builder for resources without an expiration rule.
const (
	BucketUnder1 = "<1h"
	Bucket2to4   = "2-4h"
	Bucket5to8   = "5-8h"
	Bucket9to12  = "9-12h"
	BucketOver12 = ">12h"
	BucketNA     = "N/A"
)

// BucketOrder is the fixed bucket ordering of the duration histogram.
var BucketOrder = []string{BucketUnder1, Bucket2to4, Bucket5to8, Bucket9to12, BucketOver12, BucketNA}

// BucketLabel assigns an hour count to its histogram bucket. Total over
// non-negative inputs; boundary values belong to the lower-inclusive bucket.
func BucketLabel(hours int) string {
	switch {
	case hours <= 1:
		return BucketUnder1
	case hours <= 4:
		return Bucket2to4
	case hours <= 8:
		return Bucket5to8
	case hours <= 12:
		return Bucket9to12
	default:
		return BucketOver12
	}
}

// CompactLabel renders an hour count at the dashboard summary's coarser
// granularity: hours up to a day, rounded days beyond.
//
// Kept separate from BucketLabel on purpose; the summary and the histogram
// use different scales and the thresholds must not drift together.
func CompactLabel(hours int) string {
	switch {
	case hours < 1:
		return "<1h"
	case hours <= 24:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dd", (hours+12)/24)
	}
}
