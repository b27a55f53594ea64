package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Tryboy869/gitradar/internal/domain"
	"github.com/Tryboy869/gitradar/internal/port"
)

var searchOpts struct {
	query    string
	language string
	category string
	sort     string
	limit    int
}

var searchCmd = &cobra.Command{
	Use:     "search",
	Short:   "在已入库的仓库中搜索",
	Example: `  gitradar search -q "orm" --language Go --sort stars`,
	Args:    cobra.NoArgs,
	RunE:    runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVarP(&searchOpts.query, "query", "q", "", "关键词, 匹配名称和描述")
	f.StringVar(&searchOpts.language, "language", "", "按语言过滤")
	f.StringVar(&searchOpts.category, "category", "", "按分类过滤, 例如 database")
	f.StringVar(&searchOpts.sort, "sort", string(port.SortByScore), "排序: score|stars|recent")
	f.IntVar(&searchOpts.limit, "limit", port.DefaultQueryLimit, "返回条数, 最多 100")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	q := port.RepositoryQuery{
		Language: searchOpts.language,
		Category: domain.Category(searchOpts.category),
		Text:     strings.TrimSpace(searchOpts.query),
		Sort:     port.SortKey(searchOpts.sort),
		Limit:    searchOpts.limit,
	}
	if q.Text == "" && q.Language == "" && q.Category == "" {
		return errors.New("请至少指定 -q、--language 或 --category 中的一个")
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	c, err := newComponents(cmd.Context(), cfg, log, false)
	if err != nil {
		return err
	}
	defer c.Close()

	records, err := c.catalog.Search(cmd.Context(), q)
	if err != nil {
		return err
	}
	return printRecords(cmd.OutOrStdout(), records)
}

func printRecords(w io.Writer, records []*domain.RepositoryRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "📭 没有匹配的仓库")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tSTARS\tREPOSITORY\tCATEGORY\tPROD\tURL")
	for _, r := range records {
		prod := ""
		if r.ProductionReady {
			prod = "✓"
		}
		fmt.Fprintf(tw, "%.1f\t%d\t%s\t%s\t%s\t%s\n", r.UtilityScore, r.Stars, r.FullName, r.Category, prod, r.HTMLURL)
	}
	return tw.Flush()
}
