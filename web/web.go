package web

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"nbarotations/jobs"
	"nbarotations/rotation"
	"nbarotations/utils"
)

type Store interface {
	rotation.Reader
	DeleteByDate(date string) (int, error)
}

type Server struct {
	store         Store
	excludedTeams []string
	padRoster     bool
}

func NewServer(store Store, excludedTeams []string, padRoster bool) *Server {
	return &Server{store: store, excludedTeams: excludedTeams, padRoster: padRoster}
}

type errorResponse struct {
	Error string `json:"error"`
}

type deleteResponse struct {
	Date    string `json:"date"`
	Deleted int    `json:"deleted"`
}

func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/results", s.results)
	e.DELETE("/results/:date", s.deleteByDate)
	e.GET("/boxscores", s.boxscores)
	e.GET("/teams", s.teams)
	e.GET("/teams/:team/heatmap.png", s.heatmap)
	return e
}

func (s *Server) results(c echo.Context) error {
	results, err := s.store.ReadAllResults()
	if err != nil {
		log.Println(utils.ErrorWithTrace(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{"unable to read results"})
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) boxscores(c echo.Context) error {
	lines, err := s.store.ReadAllBoxscores()
	if err != nil {
		log.Println(utils.ErrorWithTrace(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{"unable to read boxscores"})
	}
	return c.JSON(http.StatusOK, lines)
}

func (s *Server) deleteByDate(c echo.Context) error {
	date := c.Param("date")
	if _, err := time.Parse(utils.StoredDateLayout, date); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"invalid date, expected YYYY-MM-DD"})
	}
	n, err := s.store.DeleteByDate(date)
	if err != nil {
		log.Println(utils.ErrorWithTrace(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{"unable to delete"})
	}
	if n == 0 {
		return c.JSON(http.StatusNotFound, errorResponse{"No games to delete with that date."})
	}
	return c.JSON(http.StatusOK, deleteResponse{Date: date, Deleted: n})
}

func (s *Server) dataset() (*rotation.Dataset, error) {
	return rotation.Load(s.store, s.excludedTeams)
}

func (s *Server) teams(c echo.Context) error {
	d, err := s.dataset()
	if err != nil {
		log.Println(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{"unable to load data"})
	}
	return c.JSON(http.StatusOK, d.Teams())
}

func (s *Server) heatmap(c echo.Context) error {
	team, err := url.PathUnescape(c.Param("team"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"invalid team name"})
	}
	d, err := s.dataset()
	if err != nil {
		log.Println(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{"unable to load data"})
	}
	var buf bytes.Buffer
	if err := jobs.WriteTeam(&buf, d, team, s.padRoster); err != nil {
		if errors.Is(err, rotation.ErrUnknownTeam) {
			return c.JSON(http.StatusNotFound, errorResponse{"That name is not valid, please enter a valid team name (case sensitive)"})
		}
		log.Println(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{"unable to render heatmap"})
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}
