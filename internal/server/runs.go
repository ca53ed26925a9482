package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/sequin/internal/history"
	"github.com/kode4food/sequin/internal/loader"
	"github.com/kode4food/sequin/pkg/api"
)

var (
	ErrInvalidJSON     = errors.New("invalid JSON")
	ErrListRuns        = errors.New("failed to list runs")
	ErrGetRun          = errors.New("failed to get run")
	ErrInvalidWorkflow = errors.New("invalid workflow")
	ErrRunSource       = errors.New(
		"exactly one of path or definition is required",
	)
)

func (s *Server) startRun(c *gin.Context) {
	var req api.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	if (req.Path == "") == (req.Definition == "") {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  ErrRunSource.Error(),
			Status: http.StatusBadRequest,
		})
		return
	}

	if req.Path != "" {
		if err := loader.CheckPath(req.Path); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{
				Error:  err.Error(),
				Status: http.StatusBadRequest,
			})
			return
		}
	}

	def, err := s.loadDefinition(c, &req)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidWorkflow, err),
			Status: http.StatusUnprocessableEntity,
		})
		return
	}

	res := s.engine.RunWorkflow(c.Request.Context(), def, req.Variables)
	c.JSON(http.StatusOK, res)
}

func (s *Server) loadDefinition(
	c *gin.Context, req *api.RunRequest,
) (*api.WorkflowDefinition, error) {
	if req.Definition != "" {
		return loader.Parse([]byte(req.Definition))
	}
	return s.engine.LoadWorkflow(c.Request.Context(), req.Path)
}

func (s *Server) listRuns(c *gin.Context) {
	runs, err := s.engine.ListRuns(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrListRuns, err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, api.RunsListResponse{
		Runs:  runs,
		Count: len(runs),
	})
}

func (s *Server) getRun(c *gin.Context) {
	runID := api.RunID(c.Param("runID"))

	run, err := s.engine.GetRun(c.Request.Context(), runID)
	if err == nil {
		c.JSON(http.StatusOK, run)
		return
	}

	if errors.Is(err, history.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", err.Error(), runID),
			Status: http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:  fmt.Sprintf("%s: %v", ErrGetRun, err),
		Status: http.StatusInternalServerError,
	})
}
