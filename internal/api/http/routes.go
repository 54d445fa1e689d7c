package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/202116302/AWS-log/internal/graphs"
	"github.com/202116302/AWS-log/internal/observability"
	"github.com/202116302/AWS-log/internal/store"
	"github.com/202116302/AWS-log/internal/telemetry"
)

var validate = validator.New()

const dateLayout = "2006-01-02"

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *telemetry.Service, renderer *graphs.Renderer) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Smart Farm Weather API",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"latest":    "/api/weather/latest",
				"today":     "/api/weather/today",
				"date":      "/api/weather/date/{date}",
				"range":     "/api/weather/range",
				"stats":     "/api/weather/stats",
				"recent":    "/api/weather/recent",
				"low-light": "/api/weather/low-light",
			},
		})
	})

	weather := app.Group("/api/weather")

	weather.Get("/latest", func(c *fiber.Ctx) error {
		observability.QueriesTotal.WithLabelValues("latest").Inc()

		rec, err := service.Latest(c.UserContext())
		if err != nil {
			return mapStoreError(err, "no weather data available")
		}
		return c.JSON(rec)
	})

	weather.Get("/today", func(c *fiber.Ctx) error {
		observability.QueriesTotal.WithLabelValues("today").Inc()

		records, err := service.ByDate(c.UserContext(), time.Now())
		if err != nil {
			return mapStoreError(err, "no weather data for today")
		}
		return c.JSON(records)
	})

	weather.Get("/date/:date", func(c *fiber.Ctx) error {
		observability.QueriesTotal.WithLabelValues("date").Inc()

		day, err := time.ParseInLocation(dateLayout, c.Params("date"), time.Local)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
		}

		records, err := service.ByDate(c.UserContext(), day)
		if err != nil {
			return mapStoreError(err, "no weather data for requested date")
		}
		return c.JSON(records)
	})

	weather.Get("/range", func(c *fiber.Ctx) error {
		observability.QueriesTotal.WithLabelValues("range").Inc()

		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := service.ByRange(c.UserContext(), req.Start, req.End, req.Limit)
		if err != nil {
			return mapStoreError(err, "no weather data for requested range")
		}
		return c.JSON(records)
	})

	weather.Get("/stats", func(c *fiber.Ctx) error {
		observability.QueriesTotal.WithLabelValues("stats").Inc()

		start, end, err := bindStatsWindow(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		stats, err := service.Stats(c.UserContext(), start, end)
		if err != nil {
			return mapStoreError(err, "no weather data in requested window")
		}
		return c.JSON(stats)
	})

	weather.Get("/recent", func(c *fiber.Ctx) error {
		observability.QueriesTotal.WithLabelValues("recent").Inc()

		hours := c.QueryInt("hours", 24)
		if hours < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "hours must be at least 1")
		}

		records, err := service.Recent(c.UserContext(), hours)
		if err != nil {
			return mapStoreError(err, "no weather data in requested period")
		}
		return c.JSON(records)
	})

	weather.Get("/low-light", func(c *fiber.Ctx) error {
		observability.QueriesTotal.WithLabelValues("low-light").Inc()

		threshold, err := strconv.ParseFloat(c.Query("threshold", "100"), 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid threshold")
		}
		days := c.QueryInt("days", 7)
		if days < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "days must be at least 1")
		}

		// An empty result here is a plain empty list: callers treat this
		// endpoint as "do we need supplemental lighting", not as a lookup.
		records, err := service.LowRadiation(c.UserContext(), threshold, days)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}
		return c.JSON(records)
	})

	graph := app.Group("/api/graph")

	graph.Get("/generate", func(c *fiber.Ctx) error {
		if err := renderer.Trigger(); err != nil {
			if errors.Is(err, graphs.ErrNoCommand) {
				return fiber.NewError(fiber.StatusServiceUnavailable, "graph rendering is not configured")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to start graph renderer")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "graph rendering started",
		})
	})

	graph.Get("/image/:type", func(c *fiber.Ctx) error {
		path, err := renderer.ImagePath(c.Params("type"))
		if err != nil {
			if errors.Is(err, graphs.ErrUnknownKind) {
				return fiber.NewError(fiber.StatusBadRequest, "unknown graph type, use separate|combined|daily")
			}
			return fiber.NewError(fiber.StatusNotFound, "graph image not available")
		}
		return c.SendFile(path)
	})
}

func mapStoreError(err error, notFoundMsg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, notFoundMsg)
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
}

// rangeQuery holds query parameters for the range endpoint.
type rangeQuery struct {
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required,gtefield=Start"`
	Limit int       `validate:"gte=1"`
}

func (r *rangeQuery) bind(c *fiber.Ctx) error {
	startStr := c.Query("start_date")
	endStr := c.Query("end_date")
	if startStr == "" || endStr == "" {
		return errors.New("start_date and end_date query parameters are required")
	}

	start, err := time.ParseInLocation(dateLayout, startStr, time.Local)
	if err != nil {
		return errors.New("invalid start_date, use YYYY-MM-DD")
	}
	end, err := time.ParseInLocation(dateLayout, endStr, time.Local)
	if err != nil {
		return errors.New("invalid end_date, use YYYY-MM-DD")
	}

	r.Start = start
	r.End = end
	r.Limit = c.QueryInt("limit", 1000)
	return nil
}

// bindStatsWindow parses the optional stats window. Both dates absent means
// today; giving only one of the two is a client error.
func bindStatsWindow(c *fiber.Ctx) (time.Time, time.Time, error) {
	startStr := c.Query("start_date")
	endStr := c.Query("end_date")

	if startStr == "" && endStr == "" {
		now := time.Now()
		return now, now, nil
	}
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, errors.New("start_date and end_date must be given together")
	}

	start, err := time.ParseInLocation(dateLayout, startStr, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid start_date, use YYYY-MM-DD")
	}
	end, err := time.ParseInLocation(dateLayout, endStr, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid end_date, use YYYY-MM-DD")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end_date must not be before start_date")
	}
	return start, end, nil
}
