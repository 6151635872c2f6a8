package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/eligibility/internal/pipeline"
)

// triggerRunHandler godoc
// @Summary Start a full pipeline run
// @Description Launches manifest, ingestion, normalization and verification in the background and returns the assigned run id immediately.
// @Tags runs
// @Produce json
// @Success 202 {object} map[string]string "Run accepted"
// @Router /runs [post]
func triggerRunHandler(svc *pipeline.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := svc.Launch()
		log.Printf("Accepted pipeline run request, assigned run id %s", runID)
		RespondWithSuccess(c, http.StatusAccepted, gin.H{
			"load_run_id": runID,
			"status":      pipeline.StatusRunning,
		})
	}
}

// listRunsHandler godoc
// @Summary List pipeline runs
// @Description Returns all runs known to this process, newest first.
// @Tags runs
// @Produce json
// @Success 200 {object} map[string]interface{} "Run reports"
// @Router /runs [get]
func listRunsHandler(svc *pipeline.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		runs := svc.History().List()
		RespondWithSuccess(c, http.StatusOK, gin.H{
			"runs":  runs,
			"count": len(runs),
		})
	}
}

// getRunHandler godoc
// @Summary Get one pipeline run report
// @Description Returns the full report for a run id, including per-stage results collected so far.
// @Tags runs
// @Produce json
// @Success 200 {object} pipeline.RunReport "Run report"
// @Failure 404 {object} APIError "Unknown run id (RUN_NOT_FOUND)"
// @Router /runs/{run_id} [get]
func getRunHandler(svc *pipeline.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("run_id")
		report, ok := svc.History().Get(runID)
		if !ok {
			RespondWithError(c, http.StatusNotFound, ErrorCodeRunNotFound, "No run with this id.", gin.H{"load_run_id": runID})
			return
		}
		RespondWithSuccess(c, http.StatusOK, report)
	}
}

// verifyRunHandler godoc
// @Summary Verify the persisted rows of a run
// @Description Re-runs the canonical/payload consistency checks against the warehouse for one run id.
// @Tags runs
// @Produce json
// @Success 200 {object} warehouse.RunVerification "Verification counts"
// @Failure 404 {object} APIError "Unknown run id with no persisted rows (RUN_NOT_FOUND)"
// @Failure 500 {object} APIError "Verification query failed (STORAGE_UNAVAILABLE)"
// @Router /runs/{run_id}/verify [get]
func verifyRunHandler(svc *pipeline.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("run_id")
		verification, err := svc.Verify(c.Request.Context(), runID)
		if err != nil {
			log.Printf("Verification query failed for run %s: %v", runID, err)
			RespondWithError(c, http.StatusInternalServerError, ErrorCodeStorageUnavailable, "Verification query failed.", gin.H{"reason": err.Error()})
			return
		}
		// A run the history never saw and with zero persisted rows does
		// not exist as far as this process can tell.
		if verification.CanonicalCount == 0 {
			if _, ok := svc.History().Get(runID); !ok {
				RespondWithError(c, http.StatusNotFound, ErrorCodeRunNotFound, "No persisted rows for this run id.", gin.H{"load_run_id": runID})
				return
			}
		}
		RespondWithSuccess(c, http.StatusOK, verification)
	}
}

// healthzHandler reports process liveness.
func healthzHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		RespondWithSuccess(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
