package commands

// foldersCommand lists the folders of an account
type foldersCommand struct {
	accounts Accounts
}

func (c *foldersCommand) Name() string {
	return "folders"
}

func (c *foldersCommand) Description() string {
	return "List the folders of an account with their role and unread count"
}

func (c *foldersCommand) Execute(params map[string]interface{}) (interface{}, error) {
	var in target
	if err := decode(params, &in); err != nil {
		return nil, err
	}
	cl, err := client(c.accounts, in)
	if err != nil {
		return nil, err
	}
	return cl.ListFolders()
}

// unreadCommand reports the unread count of one folder
type unreadCommand struct {
	accounts Accounts
}

func (c *unreadCommand) Name() string {
	return "unread"
}

func (c *unreadCommand) Description() string {
	return "Count the unread messages of a folder"
}

func (c *unreadCommand) Execute(params map[string]interface{}) (interface{}, error) {
	var in target
	if err := decode(params, &in); err != nil {
		return nil, err
	}
	cl, err := client(c.accounts, in)
	if err != nil {
		return nil, err
	}
	folder, err := in.folderKey(cl.Account())
	if err != nil {
		return nil, err
	}

	n, err := cl.UnreadCount(folder)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"folder": folder, "unread": n}, nil
}
