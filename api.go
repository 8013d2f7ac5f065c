package covidpipe

import (
	"fmt"
	"net/http/pprof"

	"github.com/snpseq/covidpipe/config"
	"github.com/snpseq/covidpipe/lims"
	"github.com/snpseq/covidpipe/middleware"

	"github.com/rs/zerolog"

	"github.com/gin-gonic/gin"
)

type GinApi interface {
	Run() error
}

type api struct {
	config               *config.Configuration
	engine               *gin.Engine
	limsClient           lims.Client
	validationService    ValidationService
	anonymousService     AnonymousService
	creationService      CreationService
	analysisService      AnalysisService
	partnerReportService PartnerReportService
	ncdrReportService    NCDRReportService
}

func (api *api) Run() error {
	return api.engine.Run(fmt.Sprintf(":%d", api.config.APIPort))
}

// NewAPI wires the trigger endpoints the LIMS host invokes when a step
// script runs. Each endpoint loads the step, runs one pipeline service and
// reports the accumulated row failures in the response.
func NewAPI(config *config.Configuration,
	limsClient lims.Client,
	validationService ValidationService,
	anonymousService AnonymousService,
	creationService CreationService,
	analysisService AnalysisService,
	partnerReportService PartnerReportService,
	ncdrReportService NCDRReportService) GinApi {

	if config.LogLevel <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	api := api{
		config:               config,
		engine:               engine,
		limsClient:           limsClient,
		validationService:    validationService,
		anonymousService:     anonymousService,
		creationService:      creationService,
		analysisService:      analysisService,
		partnerReportService: partnerReportService,
		ncdrReportService:    ncdrReportService,
	}

	corsMiddleWare := middleware.CreateCorsMiddleware(config)
	engine.Use(corsMiddleWare)

	root := engine.Group("")
	root.GET("/health", api.GetHealth)

	v1Group := root.Group("v1")
	stepsGroup := v1Group.Group("/steps")
	{
		stepsGroup.POST("/:stepID/validate", api.ValidateSampleList)
		stepsGroup.POST("/:stepID/assign-anonymous", api.AssignAnonymous)
		stepsGroup.POST("/:stepID/create-samples", api.CreateSamples)
		stepsGroup.POST("/:stepID/analyze", api.AnalyzeStep)
		stepsGroup.POST("/:stepID/report-partner", api.ReportToPartner)
		stepsGroup.POST("/:stepID/report-ncdr", api.ReportToNCDR)
	}

	// Development-option enables debugger, this can have side-effects
	if api.config.Development {
		debug := root.Group("/debug/pprof")
		{
			debug.GET("/", gin.WrapF(pprof.Index))
			debug.GET("/profile", gin.WrapF(pprof.Profile))
			debug.GET("/trace", gin.WrapF(pprof.Trace))
			debug.GET("/heap", gin.WrapH(pprof.Handler("heap")))
			debug.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
		}
	}

	return &api
}
