package utils

import (
	"github.com/rs/zerolog/log"
	"time"
)

func FormatTimeStringToStockholmTime(timeString, format string) (time.Time, error) {
	location, err := time.LoadLocation(string("Europe/Stockholm"))
	if err != nil {
		log.Error().Err(err).Msg("Can not load Location")
		return time.Time{}, err
	}

	return time.ParseInLocation(format, timeString, location)
}

// InStockholmTime converts a timestamp to lab local time. Naming of plates
// and samples must follow the lab clock, not UTC.
func InStockholmTime(t time.Time) time.Time {
	location, err := time.LoadLocation(string("Europe/Stockholm"))
	if err != nil {
		log.Error().Err(err).Msg("Can not load Location")
		return t
	}
	return t.In(location)
}
