package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Tokyo")
	if err != nil {
		panic(err)
	}
}

// force the portal's timezone because the servers this runs on are not
// guaranteed to be in Japan, which would throw off day-label matching
// based on <time.Time>.Month()/Day()
func Now() time.Time {
	return time.Now().In(Location)
}
