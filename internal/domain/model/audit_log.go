package model

import "time"

type AuditAction string

const (
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	AuditActionUpdateOrderStage  AuditAction = "UPDATE_ORDER_STAGE"
	AuditActionCreateShipment    AuditAction = "CREATE_SHIPMENT"
	AuditActionAttachWaybill     AuditAction = "ATTACH_WAYBILL"
	AuditActionCancelShipment    AuditAction = "CANCEL_SHIPMENT"
	AuditActionRefundPayment     AuditAction = "REFUND_PAYMENT"
	AuditActionCreateProduct     AuditAction = "CREATE_PRODUCT"
)

type AuditResourceType string

const (
	AuditResourceOrder   AuditResourceType = "order"
	AuditResourceProduct AuditResourceType = "product"
)

// AuditLog records who changed what on which resource, with before/after snapshots.
type AuditLog struct {
	ID           string            `json:"id" bson:"_id"`
	ActorUserID  string            `json:"actorUserId" bson:"actorUserId"`
	Action       AuditAction       `json:"action" bson:"action"`
	ResourceType AuditResourceType `json:"resourceType" bson:"resourceType"`
	ResourceID   string            `json:"resourceId" bson:"resourceId"`
	BeforeJSON   string            `json:"beforeJson" bson:"beforeJson"`
	AfterJSON    string            `json:"afterJson" bson:"afterJson"`
	CreatedAt    time.Time         `json:"createdAt" bson:"createdAt"`
}
