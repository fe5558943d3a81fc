package ports

// ApplicationPorts aggregates all ports for dependency injection
type ApplicationPorts struct {
	// Forecast
	ForecastProvider ForecastProvider

	// Communication
	EmailProvider EmailProvider

	// Infrastructure
	ConfigProvider ConfigProvider
	Logger         Logger
	Metrics        MetricsCollector
}
