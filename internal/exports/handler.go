package exports

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PittChallenge/pittchallenge.com/pkg/response"
	"github.com/PittChallenge/pittchallenge.com/pkg/utils"
)

// Handler handles GET /getCSV.
type Handler struct {
	exporter *Exporter
	readKey  string
	logger   *zap.Logger
}

// NewHandler creates an export handler guarded by readKey.
func NewHandler(exporter *Exporter, readKey string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{exporter: exporter, readKey: readKey, logger: logger}
}

// ResolveQuery maps ?type=&of= (or the legacy ?type=id|email) to a collection name.
func ResolveQuery(typ, of string) (string, bool) {
	switch typ {
	case string(IndexID), string(IndexEmail):
		if of == "" {
			coll, err := Collection(KindRegistration, Index(typ))
			return coll, err == nil
		}
		return "", false
	}
	coll, err := Collection(Kind(typ), Index(of))
	return coll, err == nil
}

// GetCSV handles GET /getCSV?key=&type=registration|checkin&of=id|email.
func (h *Handler) GetCSV(c *gin.Context) {
	if c.Request.Method != http.MethodGet {
		response.BadRequest(c, 1)
		return
	}
	if !utils.MatchKey(c.Query("key"), h.readKey) {
		response.Unauthorized(c)
		return
	}
	collection, ok := ResolveQuery(c.Query("type"), c.Query("of"))
	if !ok {
		response.BadRequest(c, 2)
		return
	}

	var buf bytes.Buffer
	rows, err := h.exporter.Export(c.Request.Context(), collection, &buf)
	if err != nil {
		h.logger.Error("export failed", zap.String("collection", collection), zap.Error(err))
		response.Internal(c, 0)
		return
	}
	h.logger.Info("export served", zap.String("collection", collection), zap.Int("rows", rows))
	c.Header("Content-Disposition", "attachment; filename="+collection+".csv")
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
