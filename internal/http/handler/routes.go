package handler

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docflow/internal/query"
	"docflow/internal/service"
	"docflow/internal/stats"
)

// RecordListResult is the response body for record listings.
type RecordListResult struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parameter parsing, service call, error mapping.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.CaseService) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Get("/records", ListRecords(svc))
	app.Get("/records/:id", GetRecord(svc))
	app.Get("/records/:id/despachos", ListLinkedDespachos(svc))
	app.Get("/records/:id/download", DownloadRecord(svc))
	app.Delete("/records/:id", DeleteRecord(svc))

	app.Post("/processes", RegisterProcess(svc))
	app.Post("/despachos", RegisterDespacho(svc))

	app.Get("/stats", GetStats(svc))
}

// HealthCheck reports DB connectivity. When running on the local fallback
// store there is no DB handle; the service is up but degraded.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db == nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "degraded", "mode": "local"})
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListRecords returns the collection, optionally narrowed by a category
// filter and a scoped search term.
func ListRecords(svc service.CaseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope := query.Scope(c.Query("scope", string(query.ScopeAll)))
		if !query.ValidScope(scope) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_SCOPE", "invalid search scope")
		}
		category := query.Category(c.Query("category", string(query.CategoryAll)))
		if !query.ValidCategory(category) {
			return writeError(c, fiber.StatusBadRequest, "INVALID_CATEGORY", "invalid filter category")
		}

		records := svc.ListAll()
		records = query.FilterByCategory(records, category)
		records = query.Search(records, c.Query("term"), scope)

		return c.JSON(RecordListResult{Data: records, Total: len(records)})
	}
}

// GetRecord returns a single record by ID.
func GetRecord(svc service.CaseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rec, err := svc.FindByID(id)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(rec)
	}
}

// ListLinkedDespachos returns the despachos attached to a process.
func ListLinkedDespachos(svc service.CaseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		linked, err := svc.LinkedDespachos(id)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(RecordListResult{Data: linked, Total: len(linked)})
	}
}

// DownloadRecord redirects to a presigned URL for the record's stored file.
func DownloadRecord(svc service.CaseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		url, err := svc.FileURL(c.UserContext(), id)
		if err != nil {
			return svcError(c, err)
		}
		return c.Redirect(url, fiber.StatusFound)
	}
}

// RegisterProcess creates a process from a multipart form
// (fields: number, description, file).
func RegisterProcess(svc service.CaseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		up, err := formUpload(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		defer up.close()

		rec, err := svc.RegisterProcess(c.UserContext(), service.ProcessInput{
			Number:      c.FormValue("number"),
			Description: c.FormValue("description"),
			File:        up.FileUpload,
		})
		if err != nil {
			return svcError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

// RegisterDespacho creates a despacho from a multipart form
// (fields: process_id, document_type, file).
func RegisterDespacho(svc service.CaseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		up, err := formUpload(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		defer up.close()

		rec, err := svc.RegisterDespacho(c.UserContext(), service.DespachoInput{
			ProcessID:    c.FormValue("process_id"),
			DocumentType: c.FormValue("document_type"),
			File:         up.FileUpload,
		})
		if err != nil {
			return svcError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

// DeleteRecord removes a record by ID, cascading as needed.
func DeleteRecord(svc service.CaseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.DeleteRecord(c.UserContext(), id); err != nil {
			return svcError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GetStats returns the dashboard counters, always freshly derived.
func GetStats(svc service.CaseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(stats.Compute(svc.ListAll()))
	}
}

// formUpload extracts the uploaded file from the multipart form.
type upload struct {
	service.FileUpload
	close func() error
}

func formUpload(c *fiber.Ctx) (*upload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &upload{
		FileUpload: service.FileUpload{
			Reader:      f,
			Filename:    fh.Filename,
			ContentType: ct,
			Size:        fh.Size,
		},
		close: f.Close,
	}, nil
}

// svcError translates service errors to the standardized envelope.
func svcError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, service.ErrReaderNil):
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	case errors.Is(err, service.ErrDuplicateNumber):
		return writeError(c, fiber.StatusConflict, "DUPLICATE_NUMBER", "a process with this number already exists")
	case errors.Is(err, service.ErrProcessNotFound):
		return writeError(c, fiber.StatusNotFound, "PROCESS_NOT_FOUND", "process not found")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "record not found")
	case errors.Is(err, service.ErrFileUnavailable):
		return writeError(c, fiber.StatusNotFound, "FILE_UNAVAILABLE", "file not available for download")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
