// Package handlers serves read access to the ledger, fee quotes and the
// program event log over HTTP.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"divisionone/internal/client"
	"divisionone/internal/eventlog"
	"divisionone/internal/models"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
)

// EventLister is the part of the event repository the API reads from.
type EventLister interface {
	List(ctx context.Context, f eventlog.Filter) ([]models.ProgramEvent, error)
}

// Handler holds what the routes need. Events and Hub may be nil when the
// database or the broker is not configured.
type Handler struct {
	Chain  *client.Client
	Events EventLister
	Hub    *Hub
}

func New(chain *client.Client, events EventLister, hub *Hub) *Handler {
	return &Handler{Chain: chain, Events: events, Hub: hub}
}

var errInvalidPublicKey = errors.New("invalid public key")

// pathKey parses the named path parameter as a public key, writing a 400 on
// failure.
func pathKey(c *gin.Context, name string) (solana.PublicKey, bool) {
	return parseKey(c, name, c.Param(name))
}

func queryKey(c *gin.Context, name string) (solana.PublicKey, bool) {
	v := c.Query(name)
	if v == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " is required"})
		return solana.PublicKey{}, false
	}
	return parseKey(c, name, v)
}

func parseKey(c *gin.Context, name, v string) (solana.PublicKey, bool) {
	key, err := solana.PublicKeyFromBase58(v)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidPublicKey.Error() + ": " + name})
		return solana.PublicKey{}, false
	}
	return key, true
}
