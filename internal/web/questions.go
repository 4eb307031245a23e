package web

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"highnoon/internal/storage"
	"highnoon/pkg/logx"
)

type questionRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Opts        string `json:"opts"`
	Ans         string `json:"ans"`
	Explanation string `json:"explanation,omitempty"`
	Details     string `json:"details,omitempty"`
}

func (s *Server) createQuestion(c echo.Context) error {
	var req questionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}
	id, err := s.questions.Create(c.Request().Context(), storage.Question{
		Subject:     req.Subject,
		Description: req.Description,
		Opts:        req.Opts,
		Ans:         req.Ans,
		Explanation: req.Explanation,
		Details:     req.Details,
	})
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}
	s.log.Info("question created", logx.Int64("id", id), logx.String("subject", req.Subject))
	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) getQuestion(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}
	q, err := s.questions.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}
	if q == nil {
		return c.NoContent(http.StatusNotFound)
	}
	return c.JSON(http.StatusOK, q)
}

func (s *Server) deleteQuestion(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}
	if err := s.questions.Delete(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) bySubject(c echo.Context) error {
	qs, err := s.questions.BySubject(c.Request().Context(), c.Param("subject"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}
	if qs == nil {
		qs = []storage.Question{}
	}
	return c.JSON(http.StatusOK, qs)
}

func (s *Server) subjects(c echo.Context) error {
	subjects, err := s.questions.Subjects(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}
	return c.JSON(http.StatusOK, subjects)
}
