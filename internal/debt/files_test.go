package debt_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/truckops/truckops/internal/debt"
	"github.com/truckops/truckops/internal/platform/httpx"
	"github.com/truckops/truckops/internal/shared"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

func TestSanitizeFileName(t *testing.T) {
	require.Equal(t, "h_p_2024.pdf", debt.SanitizeFileName("h\u1ee3p 2024.pdf"))
	require.Equal(t, "passwd", debt.SanitizeFileName("../../etc/passwd"))
	require.Equal(t, "", debt.SanitizeFileName("  "))
}

func TestUploadListDeleteFiles(t *testing.T) {
	ctx, sys, f := newSystem(t, false)
	ctx = shared.ContextWithUserID(ctx, 7)

	uploaded, err := sys.DebtFiles.Upload(ctx, debt.FileUpload{
		CustomerID: f.Customer.ID, Year: 2024, FileName: "bien ban.pdf", Notes: " đối chiếu ", Content: pdfBytes,
	})
	require.NoError(t, err)
	require.Equal(t, "bien_ban.pdf", uploaded.FileName)
	require.Equal(t, "application/pdf", uploaded.ContentType)
	require.Equal(t, int64(len(pdfBytes)), uploaded.Size)
	require.Equal(t, "đối chiếu", uploaded.Notes)
	require.NotNil(t, uploaded.UploadedBy)
	require.Equal(t, int64(7), *uploaded.UploadedBy)

	_, err = sys.DebtFiles.Upload(ctx, debt.FileUpload{CustomerID: f.Customer.ID, Year: 2023, FileName: "a.txt", Content: []byte("ghi chú")})
	require.NoError(t, err)

	all, err := sys.DebtFiles.List(ctx, f.Customer.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	year := 2024
	only, err := sys.DebtFiles.List(ctx, f.Customer.ID, &year)
	require.NoError(t, err)
	require.Len(t, only, 1)

	_, content, err := sys.DebtFiles.Open(ctx, f.Customer.ID, uploaded.ID)
	require.NoError(t, err)
	require.Equal(t, pdfBytes, content)

	_, _, err = sys.DebtFiles.Open(ctx, f.Customer.ID+100, uploaded.ID)
	require.ErrorIs(t, err, debt.ErrFileNotFound)
	require.ErrorIs(t, sys.DebtFiles.Delete(ctx, f.Customer.ID+100, uploaded.ID), debt.ErrFileNotFound)

	require.NoError(t, sys.DebtFiles.Delete(ctx, f.Customer.ID, uploaded.ID))
	require.ErrorIs(t, sys.DebtFiles.Delete(ctx, f.Customer.ID, uploaded.ID), debt.ErrFileNotFound)
}

func TestUploadRejectsBadInput(t *testing.T) {
	ctx, sys, f := newSystem(t, false)
	cases := map[string]struct {
		in   debt.FileUpload
		want error
	}{
		"empty":    {debt.FileUpload{CustomerID: f.Customer.ID, Year: 2024, FileName: "a.pdf"}, debt.ErrFileEmpty},
		"too big":  {debt.FileUpload{CustomerID: f.Customer.ID, Year: 2024, FileName: "a.pdf", Content: make([]byte, debt.MaxFileSize+1)}, debt.ErrFileTooLarge},
		"no name":  {debt.FileUpload{CustomerID: f.Customer.ID, Year: 2024, Content: pdfBytes}, debt.ErrFileName},
		"year":     {debt.FileUpload{CustomerID: f.Customer.ID, Year: 1990, FileName: "a.pdf", Content: pdfBytes}, debt.ErrInvalidYear},
		"customer": {debt.FileUpload{Year: 2024, FileName: "a.pdf", Content: pdfBytes}, debt.ErrInvalidCustomer},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := sys.DebtFiles.Upload(ctx, tc.in)
			require.ErrorIs(t, err, tc.want)
		})
	}

	_, err := sys.DebtFiles.Upload(ctx, debt.FileUpload{CustomerID: f.Customer.ID + 100, Year: 2024, FileName: "a.pdf", Content: pdfBytes})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func multipartUpload(t *testing.T, year, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("year", year))
	require.NoError(t, mw.WriteField("notes", "scan"))
	if name != "" {
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestDebtFileRoutes(t *testing.T) {
	_, sys, f := newSystem(t, false)
	r := chi.NewRouter()
	r.Route("/debts", debt.NewHandler(nil, sys.Debts, nil).WithFiles(sys.DebtFiles).MountRoutes)
	base := fmt.Sprintf("/debts/customers/%d/files", f.Customer.ID)

	body, contentType := multipartUpload(t, "2024", "hoa don.pdf", pdfBytes)
	req := httptest.NewRequest(http.MethodPost, base, body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var created debt.File
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))
	require.Equal(t, "hoa_don.pdf", created.FileName)

	res = get(r, base+"?year=2024")
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"file_name":"hoa_don.pdf"`)

	res = get(r, fmt.Sprintf("%s/%d", base, created.ID))
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "application/pdf", res.Header().Get("Content-Type"))
	require.Contains(t, res.Header().Get("Content-Disposition"), "hoa_don.pdf")
	require.Equal(t, pdfBytes, res.Body.Bytes())

	body, contentType = multipartUpload(t, "2024", "", nil)
	req = httptest.NewRequest(http.MethodPost, base, body)
	req.Header.Set("Content-Type", contentType)
	res = httptest.NewRecorder()
	r.ServeHTTP(res, req)
	require.Equal(t, http.StatusBadRequest, res.Code)

	del := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("%s/%d", base, created.ID), nil)
	res = httptest.NewRecorder()
	r.ServeHTTP(res, del)
	require.Equal(t, http.StatusNoContent, res.Code)

	res = get(r, fmt.Sprintf("%s/%d", base, created.ID))
	require.Equal(t, http.StatusNotFound, res.Code)
}

func TestDebtFileRoutesNeedFileService(t *testing.T) {
	_, sys, f := newSystem(t, false)
	r := chi.NewRouter()
	r.Route("/debts", debt.NewHandler(nil, sys.Debts, nil).MountRoutes)
	res := get(r, fmt.Sprintf("/debts/customers/%d/files", f.Customer.ID))
	require.Equal(t, http.StatusNotFound, res.Code)
}
