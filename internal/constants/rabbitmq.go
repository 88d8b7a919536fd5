package constants

// Exchanges
const (
	BookingExchange = "booking_exchange"
	CatalogExchange = "catalog_exchange"
)

// Queues
const (
	QueueCatalogChanges = "catalog_changes"
)

// Routing keys
const (
	RoutingKeyBookingConfirmed       = "booking.confirmed"
	RoutingKeyBookingCancelled       = "booking.cancelled"
	RoutingKeyBookingExpired         = "booking.expired"
	RoutingKeyCatalogPropertyChanged = "catalog.property_changed"
)

// Retry topology of the catalog changes consumer
const (
	CatalogRetryExchange = "catalog_changes_retry_exchange"
	CatalogRetryQueue    = "catalog_changes_retry_wait"
	CatalogRetryTTLMs    = 5000
	CatalogMaxRetries    = 3

	FinalDLXExchange   = "catalog_changes_final_dlx"
	FinalDLQ           = "catalog_changes_final_dlq"
	FinalDLQRoutingKey = "catalog.dlq.key"
)
