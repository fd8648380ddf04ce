package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/arzan03/TourBooking/internal/repository"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
)

// Resource is the store behind the generic CRUD handlers. Every
// repository.Repository satisfies it.
type Resource[T any] interface {
	GetAll(ctx context.Context, params url.Values, scope bson.M, opts ...repository.ReadOption) (repository.PagedResult[T], error)
	GetOne(ctx context.Context, id string, opts ...repository.ReadOption) (*T, error)
	CreateOne(ctx context.Context, doc *T) (*T, error)
	UpdateOne(ctx context.Context, id string, patch []byte) (*T, error)
	DeleteOne(ctx context.Context, id string) error
}

// ScopeFunc derives the parent filter of a nested route.
type ScopeFunc func(c *fiber.Ctx) (bson.M, error)

// PrepareFunc fills in a decoded document before it is created.
type PrepareFunc[T any] func(c *fiber.Ctx, doc *T) error

func GetAll[T any](r Resource[T], scope ScopeFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var filter bson.M
		if scope != nil {
			f, err := scope(c)
			if err != nil {
				return err
			}
			filter = f
		}
		page, err := r.GetAll(c.UserContext(), queryValues(c), filter)
		if err != nil {
			return err
		}
		return sendList(c, page)
	}
}

func GetOne[T any](r Resource[T], opts ...repository.ReadOption) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := r.GetOne(c.UserContext(), c.Params("id"), opts...)
		if err != nil {
			return err
		}
		return sendOne(c, http.StatusOK, doc)
	}
}

func CreateOne[T any](r Resource[T], prepare PrepareFunc[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc := new(T)
		if len(c.Body()) > 0 {
			if err := c.BodyParser(doc); err != nil {
				return apperr.BadRequest("Invalid request body")
			}
		}
		if prepare != nil {
			if err := prepare(c, doc); err != nil {
				return err
			}
		}
		created, err := r.CreateOne(c.UserContext(), doc)
		if err != nil {
			return err
		}
		return sendOne(c, http.StatusCreated, created)
	}
}

// UpdateOne applies the JSON body as a partial update.
func UpdateOne[T any](r Resource[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		patch := c.Body()
		if len(patch) == 0 {
			patch = []byte("{}")
		}
		doc, err := r.UpdateOne(c.UserContext(), c.Params("id"), patch)
		if err != nil {
			return err
		}
		return sendOne(c, http.StatusOK, doc)
	}
}

func DeleteOne[T any](r Resource[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := r.DeleteOne(c.UserContext(), c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(http.StatusNoContent)
	}
}
