package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newTestRouter(t *testing.T, ebooks ebookService, grades gradeService) *gin.Engine {
	t.Helper()
	cfg := RouterConfig{}
	if ebooks != nil {
		cfg.EBooks = NewEBookHandler(ebooks, 1024)
	}
	if grades != nil {
		cfg.Grades = NewGradeHandler(grades)
	}
	return NewRouter(cfg)
}
