package main

import (
	"net/http"
	"strconv"

	"ctrlos/internal/response"
)

func jsonResp(w http.ResponseWriter, data interface{}) {
	response.JSON(w, data)
}

func jsonRespMeta(w http.ResponseWriter, data interface{}, total, page, limit int) {
	response.JSONMeta(w, data, total, page, limit)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	response.Err(w, msg, code)
}

func jsonValidationErr(w http.ResponseWriter, v *ValidationErrors) {
	response.ValidationErr(w, "Validation failed", v.Fields)
}

func decodeBody(r *http.Request, v interface{}) error {
	return response.DecodeBody(r, v)
}

// pageParams parses ?page and ?limit with sane bounds.
func pageParams(r *http.Request) (page, limit, offset int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return page, limit, (page - 1) * limit
}
