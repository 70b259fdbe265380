package migrate

import (
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	in := `create table a (id text);
insert into a values ('x;y');
`
	stmts := splitStatements(in)
	if len(stmts) != 2 {
		t.Fatalf("got %d statements: %q", len(stmts), stmts)
	}
}

func TestSplitStatementsDollarQuoted(t *testing.T) {
	in := `create function allocate_service_po_number(p_ticket text) returns text as $$
declare n int;
begin
  update po_counters set next = next + 1 returning next into n;
  return 'SPO-' || lpad(n::text, 4, '0');
end;
$$ language plpgsql;
select 1;
`
	stmts := splitStatements(in)
	if len(stmts) != 2 {
		t.Fatalf("got %d statements: %q", len(stmts), stmts)
	}
	if !strings.Contains(stmts[0], "language plpgsql") {
		t.Fatalf("function body split apart:\n%s", stmts[0])
	}
}
