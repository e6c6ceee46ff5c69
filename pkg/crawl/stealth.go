package crawl

// Profile is the browser identity presented to the source. Locale, timezone
// and geolocation should agree with the institution being crawled.
type Profile struct {
	// UserAgent is left empty to pick a random one per session.
	UserAgent      string
	Locale         string
	AcceptLanguage string
	Timezone       string
	Latitude       float64
	Longitude      float64
	ViewportWidth  int
	ViewportHeight int
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// DefaultProfile returns a desktop Chrome identity in US English for the
// given IANA timezone.
func DefaultProfile(timezone string) Profile {
	return Profile{
		UserAgent:      defaultUserAgent,
		Locale:         "en-US",
		AcceptLanguage: "en-US,en;q=0.9",
		Timezone:       timezone,
		ViewportWidth:  1366,
		ViewportHeight: 768,
	}
}

func (p Profile) viewport() (int, int) {
	w, h := p.ViewportWidth, p.ViewportHeight
	if w <= 0 {
		w = 1366
	}
	if h <= 0 {
		h = 768
	}
	return w, h
}

// stealthScript runs before any page script and hides the properties that
// automation frameworks leave behind.
const stealthScript = `
Object.defineProperty(Navigator.prototype, 'webdriver', { get: () => undefined });
delete Object.getPrototypeOf(navigator).webdriver;
window.chrome = window.chrome || { runtime: {} };
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
const originalQuery = window.navigator.permissions && window.navigator.permissions.query;
if (originalQuery) {
  window.navigator.permissions.query = (parameters) =>
    parameters.name === 'notifications'
      ? Promise.resolve({ state: Notification.permission })
      : originalQuery(parameters);
}
`
