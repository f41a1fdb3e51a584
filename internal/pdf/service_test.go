package pdf

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/typst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockCompiler struct {
	mock.Mock
}

func (m *MockCompiler) CompileTemplate(ctx context.Context, templateName string, jsonData []byte, options ...typst.CompileOptsBuilder) ([]byte, error) {
	args := m.Called(templateName, jsonData, options)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCompiler) CleanupGeneratedFiles(files ...string) {
	m.Called(files)
}

func (m *MockCompiler) Compile(ctx context.Context, opts typst.CompileOpts) (string, error) {
	args := m.Called(opts)
	return args.String(0), args.Error(1)
}

func (m *MockCompiler) CompileToBytes(ctx context.Context, opts typst.CompileOpts) ([]byte, error) {
	args := m.Called(opts)
	return args.Get(0).([]byte), args.Error(1)
}

func TestRenderReceiptPdf(t *testing.T) {
	compiler := new(MockCompiler)
	gen := NewGenerator(compiler)

	data := &ReceiptData{
		CompanyName:   "NetBill ISP",
		ReceiptNumber: "F2024-001",
		CustomerName:  "Ana Perez",
		TotalAmount:   "110.00",
	}
	expectedJSON, _ := json.Marshal(data)

	compiler.On("CompileTemplate", "receipt.typ", expectedJSON, mock.Anything).
		Return([]byte("%PDF"), nil).Once()

	out, err := gen.RenderReceiptPdf(context.Background(), data)
	assert.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), out)
	compiler.AssertExpectations(t)
}

func TestRenderReceiptPdfCompileError(t *testing.T) {
	compiler := new(MockCompiler)
	gen := NewGenerator(compiler)

	compiler.On("CompileTemplate", "receipt.typ", mock.Anything, mock.Anything).
		Return([]byte(nil), errors.New("typst missing")).Once()

	_, err := gen.RenderReceiptPdf(context.Background(), &ReceiptData{ReceiptNumber: "F2024-002"})
	assert.Error(t, err)
	assert.True(t, ierr.Is(err, ierr.ErrSystem))
}
