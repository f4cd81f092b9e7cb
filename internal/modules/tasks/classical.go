package tasks

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/qhybrid/internal/domain"
)

// classical writes the inputs to the cache and applies the named reduction.
func (r *taskRun) classical(d Data) (interface{}, error) {
	switch normalizeOperation(d.Operation) {
	case "":
		return nil, domain.Invalid("operation", "required")
	case OpSum:
		return r.reduce(d.Values, floats.Sum)
	case OpProduct:
		return r.reduce(d.Values, floats.Prod)
	case OpMatrixMultiply:
		return r.matrixMultiply(d.MatrixA, d.MatrixB)
	default:
		return nil, domain.Invalid("operation", "unsupported operation %q", d.Operation)
	}
}

// reduce round-trips the values through the cache before reducing them.
func (r *taskRun) reduce(values []float64, fn func([]float64) float64) (float64, error) {
	if len(values) == 0 {
		return 0, domain.Invalid("values", "required")
	}

	for i, v := range values {
		if err := r.store("values/"+strconv.Itoa(i), v); err != nil {
			return 0, err
		}
	}

	loaded := make([]float64, len(values))
	for i := range values {
		payload, err := r.load("values/" + strconv.Itoa(i))
		if err != nil {
			return 0, err
		}
		v, ok := asFloat(payload)
		if !ok {
			return 0, fmt.Errorf("value %d decoded as %T", i, payload)
		}
		loaded[i] = v
	}

	r.classicalOps += int64(len(loaded))
	return fn(loaded), nil
}

func (r *taskRun) matrixMultiply(a, b [][]float64) ([][]float64, error) {
	left, err := toDense("matrix_a", a)
	if err != nil {
		return nil, err
	}
	right, err := toDense("matrix_b", b)
	if err != nil {
		return nil, err
	}
	n, m := left.Dims()
	rows, p := right.Dims()
	if m != rows {
		return nil, domain.Invalid("matrix_b", "expected %d rows to match matrix_a columns, got %d", m, rows)
	}

	if err := r.store("matrix_a", a); err != nil {
		return nil, err
	}
	if err := r.store("matrix_b", b); err != nil {
		return nil, err
	}

	var product mat.Dense
	product.Mul(left, right)
	r.classicalOps += int64(n * m * p)

	out := make([][]float64, n)
	for i := range out {
		out[i] = mat.Row(nil, i, &product)
	}
	if err := r.store("product", out); err != nil {
		return nil, err
	}
	return out, nil
}

func toDense(field string, rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, domain.Invalid(field, "required")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, domain.Invalid(field, "row %d has %d columns, expected %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

func normalizeOperation(op string) string {
	op = strings.ToLower(strings.TrimSpace(op))
	op = strings.NewReplacer("-", "_", " ", "_").Replace(op)
	switch op {
	case "matmul", "matrix_mul", "multiply_matrices":
		return OpMatrixMultiply
	case "add":
		return OpSum
	case "multiply", "prod":
		return OpProduct
	}
	return op
}

// asFloat converts a decoded cache payload to float64.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
