package idea

import "time"

// SetNowFunc swaps the service clock until the returned func is called.
func SetNowFunc(f func() time.Time) (reset func()) {
	nowFunc = f
	return func() { nowFunc = time.Now }
}
