package handlers

import (
	"bytes"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"bbqpos/internal/pos"
	"bbqpos/internal/view"
)

func Home() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/api/view/"+string(view.NewOrder))
	}
}

func GetView(m *pos.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/view/:section"
		defer handlePanic(c, route)

		section, err := view.ParseSection(c.Param("section"))
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, err.Error())
			return
		}

		c.JSON(http.StatusOK, view.Project(m.State(), section))
	}
}

func GetState(m *pos.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, m.State())
	}
}

// Events streams the full state as server-sent events: once on connect and
// again after every change. A slow client only ever sees the latest state.
func Events(m *pos.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/events"
		defer handlePanic(c, route)

		updates := make(chan pos.State, 1)
		unsubscribe := m.Subscribe(func(s pos.State) {
			for {
				select {
				case updates <- s:
					return
				default:
				}
				select {
				case <-updates:
				default:
				}
			}
		})
		defer unsubscribe()

		log.Printf("[%s] client connected", route)
		c.SSEvent("state", m.State())
		c.Writer.Flush()

		c.Stream(func(w io.Writer) bool {
			select {
			case s := <-updates:
				c.SSEvent("state", s)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
		log.Printf("[%s] client disconnected", route)
	}
}

func ExportOrders(m *pos.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/export"
		defer handlePanic(c, route)

		var buf bytes.Buffer
		if err := m.ExportCSV(&buf); err != nil {
			respondActionError(c, route, "export orders", err)
			return
		}

		c.Header("Content-Disposition", `attachment; filename="`+m.ExportFilename()+`"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	}
}

func Health(m *pos.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /healthz"

		if err := ensureStoreConnection(c.Request.Context(), m); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
