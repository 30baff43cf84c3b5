package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"catalog-be/internal/client"
	"catalog-be/internal/product"
	"catalog-be/internal/store"

	"github.com/urfave/cli/v2"
)

const defaultAPI = "http://localhost:8080/api"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", errorMessage(err))
		os.Exit(1)
	}
}

func errorMessage(err error) string {
	if errors.Is(err, store.ErrFormIncomplete) {
		return store.MsgFormIncomplete
	}
	return err.Error()
}

// session is the state shared by every command of one invocation.
type session struct {
	api   *client.Client
	store *store.Store
	out   io.Writer
	json  bool
}

func newSession(c *cli.Context) *session {
	return &session{
		api:   client.New(c.String("api")),
		store: store.New(),
		out:   c.App.Writer,
		json:  c.Bool("json"),
	}
}

var productFlags = []cli.Flag{
	&cli.StringFlag{Name: "title"},
	&cli.StringFlag{Name: "image", Usage: "image URL, see the upload command"},
	&cli.StringFlag{Name: "category"},
	&cli.StringFlag{Name: "price"},
	&cli.StringFlag{Name: "description"},
	&cli.BoolFlag{Name: "unavailable", Usage: "mark the product out of stock"},
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "catalogctl",
		Usage: "manage the product catalog over its HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Value:   defaultAPI,
				EnvVars: []string{"CATALOG_API"},
				Usage:   "base URL of the catalog API",
			},
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"},
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list products",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}},
					&cli.StringSliceFlag{Name: "category", Aliases: []string{"c"}},
					&cli.Float64Flag{Name: "max-price"},
					&cli.StringFlag{Name: "sort", Usage: "ascending-price or descending-price"},
				},
				Action: listAction,
			},
			{
				Name:      "get",
				Usage:     "show one product by key or slug",
				ArgsUsage: "<id-or-slug>",
				Action:    getAction,
			},
			{
				Name:      "related",
				Usage:     "show products in the same category",
				ArgsUsage: "<id-or-slug>",
				Flags:     []cli.Flag{&cli.IntFlag{Name: "limit", Value: product.DefaultRelatedLimit}},
				Action:    relatedAction,
			},
			{
				Name:   "create",
				Usage:  "create a product",
				Flags:  productFlags,
				Action: createAction,
			},
			{
				Name:      "update",
				Usage:     "change the given fields of a product",
				ArgsUsage: "<id-or-slug>",
				Flags:     append(append([]cli.Flag{}, productFlags...), &cli.BoolFlag{Name: "available"}),
				Action:    updateAction,
			},
			{
				Name:      "delete",
				Usage:     "delete a product",
				ArgsUsage: "<id-or-slug>",
				Action:    deleteAction,
			},
			{
				Name:      "upload",
				Usage:     "upload an image and print its URL",
				ArgsUsage: "<file>",
				Action:    uploadAction,
			},
			{
				Name:   "categories",
				Usage:  "list known categories",
				Action: categoriesAction,
			},
		},
	}
}

func requireArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%s expects exactly one argument", c.Command.Name)
	}
	return c.Args().First(), nil
}

func listAction(c *cli.Context) error {
	s := newSession(c)

	sort, err := store.ParseSortKey(c.String("sort"))
	if err != nil {
		return err
	}

	actions := []store.Action{
		store.SetSearch{Query: c.String("search")},
		store.SetMaxPrice{MaxPrice: c.Float64("max-price")},
		store.SetSort{Key: sort},
	}
	for _, cat := range c.StringSlice("category") {
		actions = append(actions, store.ToggleCategory{Category: cat})
	}
	state := s.store.Dispatch(actions...)

	s.store.Dispatch(store.SetLoading{Loading: true})
	items, err := s.api.List(c.Context, state.Filters.Params())
	if err != nil {
		s.store.Dispatch(store.SetLoading{Loading: false}, store.SetError{Message: err.Error()})
		return err
	}
	state = s.store.Dispatch(store.SetProducts{Items: items}, store.SetLoading{Loading: false})

	return s.printProducts(state.Products.Items)
}

func getAction(c *cli.Context) error {
	id, err := requireArg(c)
	if err != nil {
		return err
	}
	s := newSession(c)

	p, err := s.api.Get(c.Context, id)
	if err != nil {
		return err
	}
	return s.printProducts([]product.Product{*p})
}

func relatedAction(c *cli.Context) error {
	id, err := requireArg(c)
	if err != nil {
		return err
	}
	s := newSession(c)

	items, err := s.api.Related(c.Context, id, c.Int("limit"))
	if err != nil {
		return err
	}
	return s.printProducts(items)
}

// fieldActions turns the product flags that were given into form edits.
func fieldActions(c *cli.Context) []store.Action {
	fields := []struct {
		flag  string
		field store.FormField
	}{
		{"title", store.FieldTitle},
		{"image", store.FieldImage},
		{"category", store.FieldCategory},
		{"price", store.FieldPrice},
		{"description", store.FieldDescription},
	}

	var actions []store.Action
	for _, f := range fields {
		if c.IsSet(f.flag) {
			actions = append(actions, store.SetField{Field: f.field, Value: c.String(f.flag)})
		}
	}
	if c.IsSet("unavailable") {
		actions = append(actions, store.SetAvailability{Available: !c.Bool("unavailable")})
	}
	if c.IsSet("available") {
		actions = append(actions, store.SetAvailability{Available: c.Bool("available")})
	}
	return actions
}

func createAction(c *cli.Context) error {
	s := newSession(c)

	actions := append([]store.Action{store.ResetForm{}, store.SetDialogOpen{Open: true}}, fieldActions(c)...)
	state := s.store.Dispatch(actions...)

	in, err := state.Form.Payload()
	if err != nil {
		return err
	}

	p, err := s.api.Create(c.Context, in)
	if err != nil {
		return err
	}
	s.store.Dispatch(store.AddProduct{Product: *p}, store.ResetForm{}, store.SetDialogOpen{Open: false})
	return s.printProducts([]product.Product{*p})
}

func updateAction(c *cli.Context) error {
	id, err := requireArg(c)
	if err != nil {
		return err
	}
	s := newSession(c)

	current, err := s.api.Get(c.Context, id)
	if err != nil {
		return err
	}

	actions := append([]store.Action{
		store.SetProducts{Items: []product.Product{*current}},
		store.SetDialogOpen{Open: true},
		store.EditProduct{Product: *current},
	}, fieldActions(c)...)
	state := s.store.Dispatch(actions...)

	in, err := state.Form.UpdatePayload()
	if errors.Is(err, store.ErrNoChanges) {
		return s.printProducts([]product.Product{*current})
	}
	if err != nil {
		return err
	}

	p, err := s.api.Update(c.Context, state.Form.EditingID, in)
	if err != nil {
		return err
	}
	state = s.store.Dispatch(store.UpdateProduct{Product: *p}, store.ResetForm{}, store.SetDialogOpen{Open: false})
	return s.printProducts(state.Products.Items)
}

func deleteAction(c *cli.Context) error {
	id, err := requireArg(c)
	if err != nil {
		return err
	}
	s := newSession(c)

	if err := s.api.Delete(c.Context, id); err != nil {
		return err
	}
	s.store.Dispatch(store.DeleteProduct{ID: id})
	fmt.Fprintln(s.out, "Product deleted successfully")
	return nil
}

func uploadAction(c *cli.Context) error {
	path, err := requireArg(c)
	if err != nil {
		return err
	}
	s := newSession(c)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := s.api.Upload(c.Context, filepath.Base(path), f)
	if err != nil {
		return err
	}
	if s.json {
		return s.printJSON(res)
	}
	fmt.Fprintln(s.out, res.URL)
	return nil
}

func categoriesAction(c *cli.Context) error {
	s := newSession(c)

	cats, err := s.api.Categories(c.Context)
	if err != nil {
		return err
	}
	if s.json {
		return s.printJSON(cats)
	}
	for _, cat := range cats {
		fmt.Fprintln(s.out, cat)
	}
	return nil
}

func (s *session) printJSON(v any) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (s *session) printProducts(items []product.Product) error {
	if s.json {
		return s.printJSON(items)
	}

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSLUG\tTITLE\tCATEGORY\tPRICE\tAVAILABLE")
	for _, p := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
			p.ID, p.Slug, p.Title, p.Category,
			strconv.FormatFloat(p.Price, 'f', 2, 64), p.Availability)
	}
	return tw.Flush()
}
