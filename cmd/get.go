package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/jcdickinson/xmldocmd/internal/cas"
	"github.com/jcdickinson/xmldocmd/internal/config"
	"github.com/jcdickinson/xmldocmd/internal/db"
	"github.com/jcdickinson/xmldocmd/internal/docs"
	"github.com/jcdickinson/xmldocmd/internal/library"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <xmldoc://UID[#fragment]>",
	Short: "Read a published documentation page by URI or documentation id",
	Example: `  xmldocmd get xmldoc://T:Contoso.Collections.Bag
  xmldocmd get 'T:Contoso.Collections.Bag#extension-methods'
  xmldocmd get 'M:Contoso.Collections.Bag.Add(System.Object)'`,
	Args: cobra.ExactArgs(1),
	Run:  runGet,
}

var getFragment string

func init() {
	getCmd.Flags().StringVarP(&getFragment, "fragment", "f", "", "read a single page section, e.g. methods")
}

func runGet(cmd *cobra.Command, args []string) {
	uid := strings.TrimPrefix(args[0], docs.URIScheme)
	fragment := getFragment
	if fragment == "" {
		for _, name := range []string{docs.FragConstructors, docs.FragProperties, docs.FragMethods, docs.FragFields, docs.FragEvents, docs.FragExtensions} {
			if strings.HasSuffix(uid, "#"+name) {
				uid, fragment = strings.TrimSuffix(uid, "#"+name), name
				break
			}
		}
	}

	lib, closeLib, err := openLibrary()
	if err != nil {
		log.Fatalf("failed to open library: %v", err)
	}
	defer closeLib()

	text, err := lib.GetDoc(uid, fragment)
	if err != nil {
		log.Fatalf("get doc failed: %v", err)
	}
	fmt.Println(text)
}

// openLibrary opens the published library for reading.
func openLibrary() (*library.Library, func(), error) {
	database, err := db.OpenReadOnly(config.DBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("%w (run transform --store first)", err)
	}
	return library.New(database, cas.Default()), func() { database.Close() }, nil
}
