package domain

// EventName is a normalized event name carried in the mapped payload's "event" field.
type EventName string

const (
	EventOrderCreated          EventName = "order created"
	EventOrderFulfilled        EventName = "order fulfilled"
	EventOrderCancelled        EventName = "order cancelled"
	EventOrderPaymentCompleted EventName = "order payment completed"
	EventOrderShipmentUpdated  EventName = "order shipment updated"
	EventOrderUpdated          EventName = "order updated"
	EventPaymentSucceeded      EventName = "payment succeeded"
	EventShipmentUpdated       EventName = "shipment updated"
	EventTaxTransactionCreated EventName = "tax transaction created"
	EventTaxReportCreated      EventName = "tax report created"
	EventProductCreated        EventName = "product created"
	EventProductUpdated        EventName = "product updated"
	EventProductDeleted        EventName = "product deleted"
	EventProductImported       EventName = "product imported"
	EventProductSynced         EventName = "product synced"
	EventInventoryUpdated      EventName = "inventory updated"
	EventCustomerCreated       EventName = "customer created"
	EventCustomerUpdated       EventName = "customer updated"
	EventWithdrawalCreated     EventName = "withdrawal created"
	EventWithdrawalUpdated     EventName = "withdrawal updated"
	EventSellerRegistered      EventName = "seller registered"
	EventSellerUpdated         EventName = "seller updated"
	EventCampaignUpdated       EventName = "campaign updated"
	EventAdPerformanceUpdated  EventName = "ad performance updated"
	EventTransactionRecorded   EventName = "transaction recorded"
	EventAnalyticsUpdated      EventName = "analytics updated"
	EventAutomationTriggered   EventName = "automation triggered"
	EventMessageSent           EventName = "message sent"
	EventCourseUpdated         EventName = "course updated"
	EventSecurityAlert         EventName = "security alert"

	// EventCustom is dispatched for unlisted events arriving through an "other" integration.
	EventCustom EventName = "custom event"
)

// ErrorCode classifies an entry in a seller's integration error log.
type ErrorCode string

const (
	ErrorCodeUnsupportedEvent       ErrorCode = "UNSUPPORTED_EVENT"
	ErrorCodeInvalidEventType       ErrorCode = "INVALID_EVENT_TYPE"
	ErrorCodeWebhookProcessingError ErrorCode = "WEBHOOK_PROCESSING_ERROR"
	ErrorCodeProviderError          ErrorCode = "PROVIDER_ERROR"
	ErrorCodeSecurityAlert          ErrorCode = "SECURITY_ALERT"
)
