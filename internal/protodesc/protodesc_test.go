package protodesc

import (
	"testing"

	"github.com/jhump/protoreflect/dynamic"

	"github.com/funvibe/bindexpr/internal/ast"
	"github.com/funvibe/bindexpr/internal/binding"
	"github.com/funvibe/bindexpr/internal/registry"
	"github.com/funvibe/bindexpr/internal/resolver"
	"github.com/funvibe/bindexpr/internal/typesystem"
)

const shopProto = `
syntax = "proto3";
package shop;

enum Status {
  UNKNOWN = 0;
  PAID = 1;
  SHIPPED = 2;
}

message Item {
  string sku = 1;
  int32 quantity = 2;
  double price = 3;
}

message Order {
  message Customer {
    string name = 1;
  }
  string id = 1;
  repeated Item items = 2;
  map<string, int64> totals = 3;
  Status status = 4;
  Customer customer = 5;
  bytes blob = 6;
}
`

func setup(t *testing.T) (*registry.Registry, map[string]*typesystem.TNamed, *dynamic.Message) {
	t.Helper()
	fd, err := ParseSource("shop.proto", shopProto)
	if err != nil {
		t.Fatal(err)
	}
	reg := registry.New()
	types, err := Register(reg, fd)
	if err != nil {
		t.Fatal(err)
	}
	return reg, types, dynamic.NewMessage(fd.FindMessage("shop.Order"))
}

func TestRegisterTypes(t *testing.T) {
	reg, types, _ := setup(t)
	for _, name := range []string{"shop.Order", "shop.Item", "shop.Status", "shop.Order.Customer"} {
		if _, ok := types[name]; !ok {
			t.Errorf("%s not registered", name)
		}
		if _, ok := reg.Lookup(name); !ok {
			t.Errorf("registry lookup of %s failed", name)
		}
	}

	res := resolver.ForRegistry(reg)
	order := types["shop.Order"]
	tests := map[string]string{
		"id":       "string",
		"items":    "shop.Item[]",
		"totals":   "Dictionary<string, long>",
		"status":   "shop.Status",
		"customer": "shop.Order.Customer",
		"blob":     "byte[]",
	}
	for field, want := range tests {
		p, err := res.ResolveMember(order, field, false)
		if err != nil {
			t.Errorf("%s: %v", field, err)
			continue
		}
		if got := p.Type.String(); got != want {
			t.Errorf("%s type = %s, want %s", field, got, want)
		}
	}

	shipped, err := res.ResolveMember(types["shop.Status"], "SHIPPED", true)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := shipped.Get(nil); v != 2 {
		t.Errorf("Status.SHIPPED = %v, want 2", v)
	}
}

func TestBindMessageFields(t *testing.T) {
	reg, types, order := setup(t)
	b := binding.New(reg)

	id, ok, err := b.Bind(order, ast.NewMember(nil, "id"))
	if err != nil || !ok {
		t.Fatalf("Bind(id) = %v, %v", ok, err)
	}
	if err := id.Set("A-1"); err != nil {
		t.Fatal(err)
	}
	if got := order.GetFieldByName("id"); got != "A-1" {
		t.Errorf("id = %v", got)
	}

	item := dynamic.NewMessage(order.GetMessageDescriptor().GetFile().FindMessage("shop.Item"))
	qty, ok, err := b.Bind(item, ast.NewMember(nil, "quantity"))
	if err != nil || !ok {
		t.Fatalf("Bind(quantity) = %v, %v", ok, err)
	}
	if err := qty.Set(int64(3)); err != nil {
		t.Fatal(err)
	}
	if v, _ := qty.Get(); v != 3 {
		t.Errorf("quantity = %#v, want 3", v)
	}
	if err := qty.Set("lots"); err == nil {
		t.Error("expected a conversion error")
	}
	if err := item.TrySetFieldByName("sku", "X1"); err != nil {
		t.Fatal(err)
	}

	items, _, _ := b.Bind(order, ast.NewMember(nil, "items"))
	if err := items.Set([]any{item}); err != nil {
		t.Fatal(err)
	}
	totals, _, _ := b.Bind(order, ast.NewMember(nil, "totals"))
	if err := totals.Set(map[string]int64{"net": 5}); err != nil {
		t.Fatal(err)
	}

	status, err := resolver.ForRegistry(reg).ResolveMember(types["shop.Order"], "status", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := status.Set(order, "PAID"); err != nil {
		t.Fatal(err)
	}

	paths := []struct {
		expr ast.Expression
		want any
	}{
		{ast.NewMember(ast.NewIndex(ast.NewMember(nil, "items"), ast.ConstantOf(0)), "sku"), "X1"},
		{ast.NewIndex(ast.NewMember(nil, "totals"), ast.ConstantOf("net")), int64(5)},
		{ast.NewMember(nil, "status"), 1},
	}
	for _, tt := range paths {
		got, ok, err := b.EvaluateExpression(order, tt.expr)
		if err != nil || !ok {
			t.Errorf("%s: ok %v, err %v", tt.expr, ok, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s = %#v, want %#v", tt.expr, got, tt.want)
		}
	}
}

func TestTypeHook(t *testing.T) {
	reg, types, order := setup(t)
	got, ok := reg.TypeOf(order)
	if !ok || got != typesystem.Type(types["shop.Order"]) {
		t.Errorf("TypeOf(order) = %v, %v", got, ok)
	}
}
