package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"taskboard/internal/canvas"
	"taskboard/internal/domain"
	"taskboard/internal/engine"
)

type drawingPath struct {
	ID string `path:"id"`
}

type drawingOutput struct {
	Body domain.Drawing `json:"body"`
}

type pngOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

func registerDrawings(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-drawings",
		Method:      http.MethodGet,
		Path:        "/drawings",
		Summary:     "List drawings",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		TaskID string `query:"task_id"`
	}) (*struct {
		Body DrawingListResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListDrawings(ctx, owner, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DrawingListResponse `json:"body"`
		}{Body: DrawingListResponse{Items: nonNilSlice(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-drawing",
		Method:        http.MethodPost,
		Path:          "/drawings",
		Summary:       "Create drawing",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body CreateDrawingRequest `json:"body"`
	}) (*drawingOutput, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.CreateDrawing(ctx, engine.DrawingCreateOptions{
			OwnerID: owner,
			Name:    input.Body.Name,
			TaskID:  input.Body.TaskID,
			Data:    input.Body.Data,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &drawingOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-drawing",
		Method:      http.MethodGet,
		Path:        "/drawings/{id}",
		Summary:     "Get drawing",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *drawingPath) (*drawingOutput, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.GetDrawing(ctx, owner, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &drawingOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-drawing",
		Method:      http.MethodPut,
		Path:        "/drawings/{id}",
		Summary:     "Update drawing",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body UpdateDrawingRequest `json:"body"`
	}) (*drawingOutput, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.UpdateDrawing(ctx, engine.DrawingUpdateOptions{
			OwnerID: owner,
			ID:      input.ID,
			Name:    input.Body.Name,
			Data:    input.Body.Data,
			TaskID:  input.Body.TaskID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &drawingOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-drawing",
		Method:        http.MethodDelete,
		Path:          "/drawings/{id}",
		Summary:       "Delete drawing",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *drawingPath) (*struct{}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteDrawing(ctx, owner, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "drawing-preview",
		Method:      http.MethodGet,
		Path:        "/drawings/{id}/preview.png",
		Summary:     "PNG preview",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
		Responses: map[string]*huma.Response{
			"200": {Description: "PNG image", Content: map[string]*huma.MediaType{"image/png": {}}},
		},
	}, func(ctx context.Context, input *drawingPath) (*pngOutput, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		png, err := e.DrawingPreview(ctx, owner, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &pngOutput{ContentType: "image/png", CacheControl: "no-cache", Body: png}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "render-drawing",
		Method:      http.MethodPost,
		Path:        "/drawings/{id}/render",
		Summary:     "Regenerate the PNG preview",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
		Responses: map[string]*huma.Response{
			"200": {Description: "PNG image", Content: map[string]*huma.MediaType{"image/png": {}}},
		},
	}, func(ctx context.Context, input *drawingPath) (*pngOutput, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		png, err := e.RenderDrawing(ctx, owner, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &pngOutput{ContentType: "image/png", CacheControl: "no-cache", Body: png}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "select-shape",
		Method:      http.MethodPost,
		Path:        "/drawings/{id}/select",
		Summary:     "Hit-test a point",
		Description: "Returns the first rectangle, circle or text shape under the point. Lines and freehand paths are never selected.",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ID   string       `path:"id"`
		Body PointRequest `json:"body"`
	}) (*struct {
		Body SelectResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, ok, err := e.SelectShape(ctx, owner, input.ID, canvas.Point{X: input.Body.X, Y: input.Body.Y})
		if err != nil {
			return nil, handleError(err)
		}
		resp := SelectResponse{Hit: ok}
		if ok {
			if resp.Shape, err = shapeBody(s); err != nil {
				return nil, handleError(err)
			}
		}
		return &struct {
			Body SelectResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "erase-shape",
		Method:      http.MethodPost,
		Path:        "/drawings/{id}/erase",
		Summary:     "Delete the shape under a point",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ID   string       `path:"id"`
		Body PointRequest `json:"body"`
	}) (*struct {
		Body EraseResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, ok, err := e.EraseAt(ctx, owner, input.ID, canvas.Point{X: input.Body.X, Y: input.Body.Y})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EraseResponse `json:"body"`
		}{Body: EraseResponse{Erased: ok, Drawing: d}}, nil
	})
}
