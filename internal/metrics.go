package internal

import "expvar"

var (
	eventsTotal   = expvar.NewMap("packit_events_total")
	parseErrors   = expvar.NewMap("packit_parse_errors_total")
	publishErrors = expvar.NewMap("packit_publish_errors_total")
)

// IncEvent counts an accepted event by trigger.
func IncEvent(trigger string) {
	eventsTotal.Add(trigger, 1)
}

// IncParseError counts a payload that could not be turned into an event.
func IncParseError(source string) {
	parseErrors.Add(source, 1)
}

func IncPublishError(driver string) {
	publishErrors.Add(driver, 1)
}
