package document

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/futig/rag-backend/internal/entity"
)

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// formFile returns the uploaded "file" part, if any
func formFile(form *multipart.Form) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	if files := form.File["file"]; len(files) > 0 {
		return files[0]
	}
	return nil
}

// formValue returns nil when the field is absent so it can be used for partial updates
func formValue(form *multipart.Form, key string) *string {
	if form == nil {
		return nil
	}
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func formBool(form *multipart.Form, key string) (*bool, error) {
	raw := formValue(form, key)
	if raw == nil || *raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(*raw)
	if err != nil {
		return nil, entity.ErrInvalidParameter
	}
	return &v, nil
}

func toCreateRequest(form *multipart.Form) (*entity.CreateDocumentRequest, error) {
	isActive, err := formBool(form, "is_active")
	if err != nil {
		return nil, err
	}

	req := &entity.CreateDocumentRequest{
		IsActive: isActive,
		File:     formFile(form),
	}
	if v := formValue(form, "title"); v != nil {
		req.Title = *v
	}
	if v := formValue(form, "content"); v != nil {
		req.Content = *v
	}
	if v := formValue(form, "category"); v != nil {
		req.Category = *v
	}
	return req, nil
}

func toUpdateRequest(id string, form *multipart.Form) (*entity.UpdateDocumentRequest, error) {
	isActive, err := formBool(form, "is_active")
	if err != nil {
		return nil, err
	}

	return &entity.UpdateDocumentRequest{
		ID:       id,
		Title:    formValue(form, "title"),
		Content:  formValue(form, "content"),
		Category: formValue(form, "category"),
		IsActive: isActive,
		File:     formFile(form),
	}, nil
}
