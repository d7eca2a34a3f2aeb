package timezone

import "time"

// China Standard Time (UTC+8). A fixed zone is used instead of
// time.LoadLocation so the timestamp label does not depend on the host
// having tzdata installed.
var Location = time.FixedZone("CST", 8*60*60)

// force timestamps into CST regardless of where the process runs,
// otherwise the "updated_at" field would drift with the server's zone
func Now() time.Time {
	return time.Now().In(Location)
}

// Stamp formats t the way the output document expects:
// "YYYY-MM-DD HH:MM:SS CST".
func Stamp(t time.Time) string {
	return t.In(Location).Format("2006-01-02 15:04:05 MST")
}
