package billing

import "time"

// Greeting returns the time-of-day thank-you line printed on bills
func Greeting(t time.Time) string {
	switch hour := t.Hour(); {
	case hour < 12:
		return "Good Morning! Thank you for your purchase."
	case hour < 17:
		return "Good Afternoon! We appreciate your business."
	default:
		return "Good Evening! Thanks for shopping with us."
	}
}
