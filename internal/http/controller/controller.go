package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether the relational store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller handles general HTTP requests.
type Controller struct {
	db Pinger
}

// New creates a new Controller.
func New(db Pinger) *Controller {
	return &Controller{
		db: db,
	}
}

// Ping handles the HTTP GET request for health check endpoint.
func (con *Controller) Ping(c *gin.Context) {
	if err := con.db.Ping(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}
