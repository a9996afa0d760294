package atelier

import (
	"path/filepath"
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "site.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetItem(t *testing.T) {
	s := setupTestStore(t)

	item := ContentItem{
		Kind:      KindBlog,
		Slug:      "indigo-dye-notes",
		Title:     "Indigo Dye Notes",
		Date:      "2026-03-10",
		Tags:      []string{"Dye", "wool"},
		Summary:   "Notes from the vat.",
		Body:      "Long form body.",
		Published: true,
	}
	if err := s.SaveItem(item); err != nil {
		t.Fatalf("SaveItem failed: %v", err)
	}

	got, err := s.GetItem(KindBlog, "indigo-dye-notes")
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got.Title != item.Title || got.Date != item.Date {
		t.Errorf("got %+v", got)
	}
	if got.Link != "/blog/indigo-dye-notes" {
		t.Errorf("Link = %q", got.Link)
	}
	// Tags are normalized to lowercase on save.
	if len(got.Tags) != 2 || got.Tags[0] != "dye" || got.Tags[1] != "wool" {
		t.Errorf("Tags = %v", got.Tags)
	}
}

func TestItemsAreScopedByKind(t *testing.T) {
	s := setupTestStore(t)

	// Same slug under two kinds must not collide.
	if err := s.SaveItem(ContentItem{Kind: KindBlog, Slug: "wool", Title: "Wool (post)", Date: "2026-01-01", Published: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveItem(ContentItem{Kind: KindProduct, Slug: "wool", Title: "Wool (skein)", Date: "2026-01-02", PriceCents: 1250, Published: true}); err != nil {
		t.Fatal(err)
	}

	post, err := s.GetItem(KindBlog, "wool")
	if err != nil {
		t.Fatalf("GetItem blog failed: %v", err)
	}
	product, err := s.GetItem(KindProduct, "wool")
	if err != nil {
		t.Fatalf("GetItem product failed: %v", err)
	}
	if post.Title == product.Title {
		t.Error("expected distinct items per kind")
	}
	if product.PriceCents != 1250 {
		t.Errorf("PriceCents = %d, want 1250", product.PriceCents)
	}
	if product.Link != "/shop/wool" {
		t.Errorf("product Link = %q", product.Link)
	}

	posts, err := s.ListItems(KindBlog, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 {
		t.Errorf("ListItems(blog) = %d items, want 1", len(posts))
	}
}

func TestListItemsFiltersDraftsAndTags(t *testing.T) {
	s := setupTestStore(t)

	items := []ContentItem{
		{Kind: KindDIY, Slug: "mend", Title: "Mend", Date: "2026-01-03", Tags: []string{"repair"}, Published: true},
		{Kind: KindDIY, Slug: "patch", Title: "Patch", Date: "2026-01-02", Tags: []string{"repair", "denim"}, Published: true},
		{Kind: KindDIY, Slug: "draft", Title: "Draft", Date: "2026-01-01", Tags: []string{"repair"}, Published: false},
	}
	for _, item := range items {
		if err := s.SaveItem(item); err != nil {
			t.Fatal(err)
		}
	}

	published, err := s.ListItems(KindDIY, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(published) != 2 {
		t.Fatalf("published = %d, want 2", len(published))
	}
	// Newest first.
	if published[0].Slug != "mend" {
		t.Errorf("order = %q first", published[0].Slug)
	}

	denim, err := s.ListItems(KindDIY, "denim")
	if err != nil {
		t.Fatal(err)
	}
	if len(denim) != 1 || denim[0].Slug != "patch" {
		t.Errorf("tag filter = %+v", denim)
	}

	all, err := s.ListAllItems(KindDIY)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("ListAllItems = %d, want 3 including draft", len(all))
	}
}

func TestGetItemAnyReturnsDrafts(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SaveItem(ContentItem{Kind: KindWorkshop, Slug: "natural-dye", Title: "Natural Dye", Date: "2026-05-01", Published: false}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetItem(KindWorkshop, "natural-dye"); err == nil {
		t.Error("GetItem should not return drafts")
	}
	got, err := s.GetItemAny(KindWorkshop, "natural-dye")
	if err != nil {
		t.Fatalf("GetItemAny failed: %v", err)
	}
	if got.Published {
		t.Error("expected draft")
	}
}

func TestDeleteItem(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SaveItem(ContentItem{Kind: KindBlog, Slug: "gone", Title: "Gone", Date: "2026-01-01", Published: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteItem(KindBlog, "gone"); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}
	if _, err := s.GetItemAny(KindBlog, "gone"); err == nil {
		t.Error("item should be deleted")
	}
}

func TestListTagsDeduplicatesPerKind(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SaveItem(ContentItem{Kind: KindBlog, Slug: "a", Title: "A", Date: "2026-01-01", Tags: []string{"Wool", "dye"}, Published: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveItem(ContentItem{Kind: KindBlog, Slug: "b", Title: "B", Date: "2026-01-02", Tags: []string{"wool"}, Published: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveItem(ContentItem{Kind: KindProduct, Slug: "c", Title: "C", Date: "2026-01-03", Tags: []string{"kit"}, Published: true}); err != nil {
		t.Fatal(err)
	}

	tags, err := s.ListTags(KindBlog)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 || tags[0] != "dye" || tags[1] != "wool" {
		t.Errorf("tags = %v, want sorted [dye wool]", tags)
	}
}

func TestSaveAndListMessages(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.SaveMessage(ContactMessage{Topic: "orders", Name: "Kim", Email: "kim@example.com", Body: "Where is my order?"})
	if err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}
	if id == 0 {
		t.Error("expected an assigned id")
	}
	if _, err := s.SaveMessage(ContactMessage{Topic: "general", Name: "Ada", Email: "ada@example.com", Body: "Hi"}); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListMessages("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("ListMessages = %d, want 2", len(all))
	}
	// Newest first.
	if all[0].Topic != "general" {
		t.Errorf("order = %q first", all[0].Topic)
	}
	if all[1].ReceivedAt == "" {
		t.Error("ReceivedAt should be stamped on save")
	}

	orders, err := s.ListMessages("orders")
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 || orders[0].Name != "Kim" {
		t.Errorf("topic filter = %+v", orders)
	}
}

func TestSaveListDeleteImages(t *testing.T) {
	s := setupTestStore(t)

	img := Image{Filename: "loom.jpg", OriginalName: "Loom.JPG", Width: 800, Height: 600, Size: 12345, UploadedAt: "2026-03-01T10:00:00Z"}
	if err := s.SaveImage(img); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	images, err := s.ListImages()
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 1 || images[0].Filename != "loom.jpg" {
		t.Errorf("images = %+v", images)
	}
	if err := s.DeleteImage("loom.jpg"); err != nil {
		t.Fatalf("DeleteImage failed: %v", err)
	}
	images, err = s.ListImages()
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 0 {
		t.Error("image should be deleted")
	}
}

func TestParseTags(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{",go,web,", 2},
		{"", 0},
		{",,", 0},
		{"solo", 1},
	}
	for _, tc := range cases {
		if got := ParseTags(tc.in); len(got) != tc.want {
			t.Errorf("ParseTags(%q) = %v, want %d tags", tc.in, got, tc.want)
		}
	}
}
