package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectPricing        = "pricing"
	ObjectPricingSession = "pricing_session"
	ObjectCategory       = "category"
	ObjectExchangeRate   = "exchange_rate"
	ObjectInquiry        = "inquiry"
	ObjectQuotation      = "quotation"
	ObjectWorkOrder      = "work_order"
	ObjectTicket         = "ticket"
	ObjectCallLog        = "call_log"
	ObjectCollection     = "collection"
	ObjectTask           = "task"
	ObjectUser           = "user"
	ObjectAuditLog       = "audit_log"
)

const (
	ActionView      = "view"
	ActionCreate    = "create"
	ActionUpdate    = "update"
	ActionStatus    = "status"
	ActionDelete    = "delete"
	ActionCalculate = "calculate"
	ActionExport    = "export"
)

const (
	roleAdmin   = "role:admin"
	roleManager = "role:manager"
	roleStaff   = "role:staff"
)

// recordObjects share the same staff permissions.
var recordObjects = []string{
	ObjectInquiry,
	ObjectQuotation,
	ObjectWorkOrder,
	ObjectTicket,
	ObjectCallLog,
	ObjectCollection,
	ObjectTask,
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role string, object string, action string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := fmt.Sprintf("role:%s", role)
	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, subject, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) auditDenied(ctx context.Context, subject string, object string, action string) {
	s.log.Info("authorization denied",
		zap.String("subject", subject),
		zap.String("object", object),
		zap.String("action", action),
	)
	if s.auditSvc == nil {
		return
	}
	targetID := object
	if err := s.auditSvc.AuditLog(ctx, "authorization.denied", "authorization", &targetID, map[string]any{
		"object":  object,
		"action":  action,
		"subject": subject,
	}); err != nil {
		s.log.Warn("audit log failed", zap.Error(err))
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{roleStaff, ObjectPricing, ActionCalculate},
		{roleStaff, ObjectPricingSession, ActionView},
		{roleStaff, ObjectPricingSession, ActionCreate},
		{roleStaff, ObjectPricingSession, ActionExport},
		{roleStaff, ObjectCategory, ActionView},
		{roleStaff, ObjectExchangeRate, ActionView},

		{roleManager, ObjectCategory, ActionCreate},
		{roleManager, ObjectCategory, ActionUpdate},
		{roleManager, ObjectExchangeRate, ActionCreate},

		// Admins hold every permission, deletes included.
		{roleAdmin, "*", "*"},
	}
	for _, object := range recordObjects {
		policies = append(policies,
			[]string{roleStaff, object, ActionView},
			[]string{roleStaff, object, ActionCreate},
			[]string{roleStaff, object, ActionUpdate},
			[]string{roleStaff, object, ActionStatus},
			[]string{roleStaff, object, ActionExport},
		)
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	groupings := [][]string{
		{roleAdmin, roleManager},
		{roleManager, roleStaff},
	}
	for _, grouping := range groupings {
		if _, err := enforcer.AddGroupingPolicy(grouping); err != nil {
			return err
		}
	}
	return nil
}
