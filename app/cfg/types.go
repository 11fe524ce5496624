package cfg

type Cfg struct {
	// Persistence
	DBPath     string
	OutputFile string

	// Crawl configuration
	SourcesFile      string
	ManualEventsFile string
	WorkerCount      int
	RunTimeout       int
	RequestTimeout   int
	BaseInterval     float64
	JitterFraction   float64

	// Fetcher selection
	Fetcher        string
	RenderEndpoint string

	// Geocoding
	GeocodeEndpoint  string
	GeocodeInterval  float64
	GeocodeStaleness int

	// Locality defaults stamped onto every record
	City    string
	Region  string
	Country string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
