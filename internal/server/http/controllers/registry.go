package controllers

import (
	"github.com/julienschmidt/httprouter"

	"github.com/rzbill/devlog/internal/runtime"
	grpcserver "github.com/rzbill/devlog/internal/server/grpc"
	logpkg "github.com/rzbill/devlog/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	logs    *LogsController
}

// NewControllerRegistry creates a new controller registry.
//
// It initializes all controllers with the provided runtime and the shared
// management service.
func NewControllerRegistry(rt *runtime.Runtime, svc *grpcserver.Service, logger logpkg.Logger) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt),
		logs:    NewLogsController(svc, logger),
	}
}

// RegisterAllRoutes registers all controller routes with the given router.
func (r *ControllerRegistry) RegisterAllRoutes(router *httprouter.Router) {
	r.general.RegisterRoutes(router)
	r.logs.RegisterRoutes(router)
}
