package schedule

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	appLog "alos/internal/log"
)

// Day-type identifiers of the five-day template.
const (
	Monday    = "mon"
	Tuesday   = "tue"
	Wednesday = "wed"
	Thursday  = "thu"
	Friday    = "fri"
)

// Saturday and Sunday run the Monday template; the template has no weekend.
var weekdayIDs = [7]string{
	time.Sunday:    Monday,
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Monday,
}

// LoadZone resolves an IANA zone name. Empty or unknown names yield UTC.
func LoadZone(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Debug("unknown timezone; using UTC", "name", name, "err", err)
		return time.UTC
	}
	return loc
}

// ResolveDayType maps the instant's local weekday in zone to a day-type id.
func ResolveDayType(instant time.Time, zone string) string {
	return WeekdayID(instant.In(LoadZone(zone)).Weekday())
}

// WeekdayID maps a weekday to its day-type id.
func WeekdayID(d time.Weekday) string {
	return weekdayIDs[d]
}

// MinutesSinceMidnight reads the zone's wall clock at instant. The value is
// taken from the local hour and minute so DST days stay correct.
func MinutesSinceMidnight(instant time.Time, zone string) int {
	local := instant.In(LoadZone(zone))
	return local.Hour()*60 + local.Minute()
}

// DetectZone finds the viewer's IANA zone: $TZ, then the /etc/localtime
// symlink, then /etc/timezone. Falls back to "UTC".
func DetectZone() string {
	return detectZone(os.Getenv("TZ"), "/etc/localtime", "/etc/timezone")
}

func detectZone(tzEnv, localtime, timezoneFile string) string {
	if tz := strings.TrimPrefix(tzEnv, ":"); knownZone(tz) {
		return tz
	}
	if target, err := filepath.EvalSymlinks(localtime); err == nil {
		if i := strings.Index(target, "zoneinfo/"); i >= 0 {
			if name := target[i+len("zoneinfo/"):]; knownZone(name) {
				return name
			}
		}
	}
	if data, err := os.ReadFile(timezoneFile); err == nil {
		if name := strings.TrimSpace(string(data)); knownZone(name) {
			return name
		}
	}
	return "UTC"
}

// knownZone rejects "", which LoadLocation would read as UTC.
func knownZone(name string) bool {
	if name == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// Clock samples the current instant in a fixed zone. Now is injectable for
// tests; nil means time.Now.
type Clock struct {
	Zone string
	Now  func() time.Time
}

// NewClock returns a Clock for zone, detecting it when empty.
func NewClock(zone string) Clock {
	if strings.TrimSpace(zone) == "" {
		zone = DetectZone()
	}
	return Clock{Zone: zone}
}

// Instant returns the current instant in the clock's zone.
func (c Clock) Instant() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return now().In(LoadZone(c.Zone))
}

// Location is the resolved zone, UTC on failure.
func (c Clock) Location() *time.Location {
	return LoadZone(c.Zone)
}

// Today is the day-type id for the current instant.
func (c Clock) Today() string {
	return ResolveDayType(c.Instant(), c.Zone)
}

// Minutes is the resolved minute offset for the current instant.
func (c Clock) Minutes() int {
	return MinutesSinceMidnight(c.Instant(), c.Zone)
}
