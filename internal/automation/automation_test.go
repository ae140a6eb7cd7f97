package automation

import "testing"

func TestExpandTemplate_Basics(t *testing.T) {
	tests := []struct {
		name     string
		template string
		tokens   []string
		want     string
	}{
		{
			name:     "positional and plus-range",
			template: "tell %1 %+2",
			tokens:   []string{"sayto", "bob", "hello", "there", "friend"},
			want:     "tell bob hello there friend",
		},
		{
			name:     "minus range",
			template: "go %-2 then %3",
			tokens:   []string{"foo", "a", "b", "c"},
			want:     "go a b then c",
		},
		{
			name:     "literal percent",
			template: "echo 100%%",
			tokens:   []string{"foo"},
			want:     "echo 100%",
		},
		{
			name:     "missing token",
			template: "hit %1",
			tokens:   []string{"foo"},
			want:     "hit ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Alias{Name: tt.tokens[0], Template: tt.template}
			got := ExpandTemplate(a, tt.tokens)
			if got != tt.want {
				t.Errorf("ExpandTemplate(%q, %v) = %q, want %q", tt.template, tt.tokens, got, tt.want)
			}
		})
	}
}

func TestProfile_LookupAlias_WalksParentChain(t *testing.T) {
	parent := &Profile{Name: "base"}
	parent.AddAlias("look", "look", true)

	child := &Profile{Name: "child", Parent: parent}
	child.AddAlias("sayto", "tell %1 %+2", false)

	if a := child.LookupAlias("sayto"); a == nil || a.Template != "tell %1 %+2" {
		t.Fatalf("expected to find sayto on child directly")
	}
	if a := child.LookupAlias("look"); a == nil {
		t.Fatalf("expected to find look on parent via chain walk")
	}
	if a := child.LookupAlias("nope"); a != nil {
		t.Fatalf("expected no match for unknown alias")
	}
}

func TestProfile_AddAlias_ReplacesByName(t *testing.T) {
	p := &Profile{Name: "p"}
	p.AddAlias("foo", "bar", false)
	p.AddAlias("foo", "baz", false)
	if len(p.Aliases) != 1 {
		t.Fatalf("expected replace, got %d aliases", len(p.Aliases))
	}
	if p.Aliases[0].Template != "baz" {
		t.Fatalf("expected replaced template, got %q", p.Aliases[0].Template)
	}
}

func TestProfile_AllTriggers_CollectsChain(t *testing.T) {
	parent := &Profile{Name: "base"}
	parent.Triggers = append(parent.Triggers, &Trigger{Pattern: "^gag$", Kind: TriggerGag})
	child := &Profile{Name: "child", Parent: parent}
	child.Triggers = append(child.Triggers, &Trigger{Pattern: "^hp:", Kind: TriggerAction})

	all := child.AllTriggers()
	if len(all) != 2 {
		t.Fatalf("expected 2 triggers from chain, got %d", len(all))
	}
	if all[0].Pattern != "^hp:" || all[1].Pattern != "^gag$" {
		t.Fatalf("expected nearest-first order, got %v, %v", all[0].Pattern, all[1].Pattern)
	}
}

func TestDefaultMatcher_PrepareExec(t *testing.T) {
	m := NewDefaultMatcher()
	h, err := m.Prepare(`^You feel (\w+)\.$`)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	matched, span, groups := m.Exec(h, "You feel hungry.")
	if !matched {
		t.Fatalf("expected match")
	}
	if span[0] != 0 || span[1] != len("You feel hungry.") {
		t.Fatalf("unexpected span %v", span)
	}
	if len(groups) < 2 || groups[1] != "hungry" {
		t.Fatalf("unexpected groups %v", groups)
	}

	matched, _, _ = m.Exec(h, "nothing here")
	if matched {
		t.Fatalf("expected no match")
	}
}
